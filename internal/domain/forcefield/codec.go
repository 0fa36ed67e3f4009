package forcefield

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/turtacn/ffengine/internal/domain/molecule"
	"github.com/turtacn/ffengine/internal/wire"
	"github.com/turtacn/ffengine/pkg/errors"
)

// TypeCLJ is the type tag written for CLJ forcefields.
const TypeCLJ = "clj"

const (
	fieldType     protowire.Number = 1
	fieldID       protowire.Number = 2
	fieldName     protowire.Number = 3
	fieldMode     protowire.Number = 4
	fieldMajor    protowire.Number = 5
	fieldMinor    protowire.Number = 6
	fieldCutoff   protowire.Number = 7
	fieldCoulombK protowire.Number = 8
	fieldMember   protowire.Number = 9
)

const (
	memberGroup protowire.Number = iota + 1
	memberMolecule
	memberChargeScale
	memberLJScale
)

// Marshal encodes ff in protobuf wire format.  Only forcefield types this
// package knows how to rebuild can be encoded.
func Marshal(ff ForceField) ([]byte, error) {
	c, ok := ff.(*CLJ)
	if !ok {
		return nil, errors.Incompatible("cannot encode forcefield type").WithDetail(fmt.Sprintf("%T", ff))
	}
	b := wire.AppendString(nil, fieldType, TypeCLJ)
	b = wire.AppendUint(b, fieldID, uint64(c.id))
	b = wire.AppendString(b, fieldName, c.name)
	b = wire.AppendUint(b, fieldMode, uint64(c.mode))
	b = wire.AppendUint(b, fieldMajor, c.version.Major)
	b = wire.AppendUint(b, fieldMinor, c.version.Minor)
	b = wire.AppendFloat(b, fieldCutoff, c.cutoff)
	b = wire.AppendFloat(b, fieldCoulombK, c.coulombConstant)
	for _, g := range c.Groups() {
		for _, id := range c.groups[g] {
			m := c.members[id]
			mb := wire.AppendString(nil, memberGroup, g)
			mb = wire.AppendMessage(mb, memberMolecule, molecule.Marshal(m.mol))
			mb = wire.AppendFloat(mb, memberChargeScale, m.chargeScale)
			mb = wire.AppendFloat(mb, memberLJScale, m.ljScale)
			b = wire.AppendMessage(b, fieldMember, mb)
		}
	}
	return b, nil
}

// Unmarshal decodes a forcefield written by Marshal.  Members must name a
// group valid for the decoded mode and each molecule may appear only once.
func Unmarshal(b []byte) (ForceField, error) {
	c := &CLJ{
		groups:  map[string][]molecule.ID{},
		members: map[molecule.ID]member{},
	}
	var (
		typ     string
		decoded []member
	)
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case fieldType:
			typ = f.String()
		case fieldID:
			c.id = ID(f.Varint)
		case fieldName:
			c.name = f.String()
		case fieldMode:
			c.mode = Mode(f.Varint)
		case fieldMajor:
			c.version.Major = f.Varint
		case fieldMinor:
			c.version.Minor = f.Varint
		case fieldCutoff:
			c.cutoff = f.Float()
		case fieldCoulombK:
			c.coulombConstant = f.Float()
		case fieldMember:
			if err := f.Expect(protowire.BytesType); err != nil {
				return err
			}
			m, err := decodeMember(f.Bytes)
			if err != nil {
				return err
			}
			decoded = append(decoded, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if typ != TypeCLJ {
		return nil, errors.Incompatible("unknown forcefield type").WithDetail(typ)
	}
	if c.id == 0 || (c.mode != ModeInter && c.mode != ModeInterGroup) {
		return nil, errors.New(errors.CodeSerialization, "decoded forcefield is incomplete").
			WithDetail(fmt.Sprintf("id=%d mode=%d", c.id, c.mode))
	}
	for _, m := range decoded {
		if err := c.validGroup(m.group); err != nil {
			return nil, errors.Wrap(err, errors.CodeSerialization, "forcefield member has an invalid group")
		}
		if _, dup := c.members[m.mol.ID()]; dup {
			return nil, errors.New(errors.CodeSerialization, "molecule encoded twice in forcefield").
				WithDetail(fmt.Sprintf("forcefield %d: molecule %d", c.id, m.mol.ID()))
		}
		c.groups[m.group] = append(c.groups[m.group], m.mol.ID())
		c.members[m.mol.ID()] = m
	}
	observe(c.version)
	return c, nil
}

func decodeMember(b []byte) (member, error) {
	m := member{chargeScale: 1, ljScale: 1}
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case memberGroup:
			m.group = f.String()
		case memberMolecule:
			mol, err := molecule.Unmarshal(f.Bytes)
			if err != nil {
				return err
			}
			m.mol = mol
		case memberChargeScale:
			m.chargeScale = f.Float()
		case memberLJScale:
			m.ljScale = f.Float()
		}
		return nil
	})
	if err != nil {
		return member{}, err
	}
	if m.mol.IsZero() {
		return member{}, errors.New(errors.CodeSerialization, "forcefield member has no molecule")
	}
	return m, nil
}

//Personal.AI order the ending
