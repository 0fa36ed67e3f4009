package molecule

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/turtacn/ffengine/internal/wire"
	"github.com/turtacn/ffengine/pkg/errors"
)

const (
	fieldID      protowire.Number = 1
	fieldVersion protowire.Number = 2
	fieldName    protowire.Number = 3
	fieldAtom    protowire.Number = 4
)

const (
	atomName protowire.Number = iota + 1
	atomElement
	atomCharge
	atomSigma
	atomEpsilon
	atomX
	atomY
	atomZ
)

// Marshal encodes m in protobuf wire format.
func Marshal(m Molecule) []byte {
	b := wire.AppendUint(nil, fieldID, uint64(m.id))
	b = wire.AppendUint(b, fieldVersion, uint64(m.version))
	b = wire.AppendString(b, fieldName, m.name)
	for _, a := range m.atoms {
		b = wire.AppendMessage(b, fieldAtom, marshalAtom(a))
	}
	return b
}

func marshalAtom(a Atom) []byte {
	b := wire.AppendString(nil, atomName, a.Name)
	b = wire.AppendString(b, atomElement, a.Element)
	b = wire.AppendFloat(b, atomCharge, a.Charge)
	b = wire.AppendFloat(b, atomSigma, a.Sigma)
	b = wire.AppendFloat(b, atomEpsilon, a.Epsilon)
	b = wire.AppendFloat(b, atomX, a.Position.X)
	b = wire.AppendFloat(b, atomY, a.Position.Y)
	return wire.AppendFloat(b, atomZ, a.Position.Z)
}

// Unmarshal decodes a molecule written by Marshal.  Later edits of any
// molecule are stamped above the decoded version.
func Unmarshal(b []byte) (Molecule, error) {
	var m Molecule
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case fieldID:
			m.id = ID(f.Varint)
		case fieldVersion:
			m.version = Version(f.Varint)
		case fieldName:
			m.name = f.String()
		case fieldAtom:
			if err := f.Expect(protowire.BytesType); err != nil {
				return err
			}
			a, err := unmarshalAtom(f.Bytes)
			if err != nil {
				return err
			}
			m.atoms = append(m.atoms, a)
		}
		return nil
	})
	if err != nil {
		return Molecule{}, err
	}
	if m.id == 0 || len(m.atoms) == 0 {
		return Molecule{}, errors.New(errors.CodeMoleculeInvalid, "decoded molecule is incomplete")
	}
	Observe(m.version)
	return m, nil
}

func unmarshalAtom(b []byte) (Atom, error) {
	var a Atom
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case atomName:
			a.Name = f.String()
		case atomElement:
			a.Element = f.String()
		case atomCharge:
			a.Charge = f.Float()
		case atomSigma:
			a.Sigma = f.Float()
		case atomEpsilon:
			a.Epsilon = f.Float()
		case atomX:
			a.Position.X = f.Float()
		case atomY:
			a.Position.Y = f.Float()
		case atomZ:
			a.Position.Z = f.Float()
		}
		return nil
	})
	return a, err
}

//Personal.AI order the ending
