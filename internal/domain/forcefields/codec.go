package forcefields

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/turtacn/ffengine/internal/cas"
	"github.com/turtacn/ffengine/internal/domain/energy"
	"github.com/turtacn/ffengine/internal/domain/forcefield"
	"github.com/turtacn/ffengine/internal/wire"
	"github.com/turtacn/ffengine/pkg/errors"
)

// FormatVersion is the version tag written at the head of every encoded
// Set.
const FormatVersion = 1

const (
	fieldVersion    protowire.Number = 1
	fieldForceField protowire.Number = 2
	fieldExpression protowire.Number = 3
	fieldTotal      protowire.Number = 4
	fieldCached     protowire.Number = 5
	fieldParameter  protowire.Number = 6
)

const (
	entryKey protowire.Number = iota + 1
	entryValue
)

// Encode writes s in protobuf wire format: the format version, then the
// forcefields in ID order, the expressions in registration order, the
// total, the cache and the parameters.  The molecule index is derived and
// not written.
func Encode(s *Set) ([]byte, error) {
	b := wire.AppendUint(nil, fieldVersion, FormatVersion)
	for _, id := range s.st.forceFieldIDs() {
		ffb, err := forcefield.Marshal(s.st.ffs[id])
		if err != nil {
			return nil, err
		}
		b = wire.AppendMessage(b, fieldForceField, ffb)
	}
	for _, e := range s.st.reg.Expressions() {
		b = wire.AppendMessage(b, fieldExpression, energy.MarshalExpression(e))
	}
	if total := s.st.reg.TotalID(); total != "" {
		b = wire.AppendString(b, fieldTotal, total)
	}
	b = appendEntries(b, fieldCached, s.st.cache.Entries())
	b = appendEntries(b, fieldParameter, s.st.params)
	return b, nil
}

func appendEntries(b []byte, num protowire.Number, m map[string]float64) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		eb := wire.AppendString(nil, entryKey, k)
		eb = wire.AppendFloat(eb, entryValue, m[k])
		b = wire.AppendMessage(b, num, eb)
	}
	return b
}

// Decode rebuilds a Set written by Encode.  Unsupported format versions
// fail with a Version error.  The molecule index is rebuilt from the
// decoded forcefields and the result is checked for consistency.
func Decode(data []byte, opts ...Option) (*Set, error) {
	s := New(opts...)

	var (
		version  uint64
		seen     bool
		exprs    []energy.Expression
		total    string
		cached   = map[string]float64{}
		params   = cas.Values{}
		position int
	)
	err := wire.Walk(data, func(f wire.Field) error {
		position++
		if position == 1 && f.Num != fieldVersion {
			return errors.Version("encoded forcefield set has no format version").
				WithDetail(fmt.Sprintf("expected %d", FormatVersion))
		}
		switch f.Num {
		case fieldVersion:
			if err := f.Expect(protowire.VarintType); err != nil {
				return err
			}
			version, seen = f.Varint, true
			if version != FormatVersion {
				return errors.Version("unsupported forcefield set format").
					WithDetail(fmt.Sprintf("got %d, expected %d", version, FormatVersion))
			}
		case fieldForceField:
			ff, err := forcefield.Unmarshal(f.Bytes)
			if err != nil {
				return err
			}
			if _, dup := s.st.ffs[ff.ID()]; dup {
				return errors.New(errors.CodeSerialization, "forcefield encoded twice").
					WithDetail(fmt.Sprintf("%d", ff.ID()))
			}
			s.st.ffs[ff.ID()] = ff
		case fieldExpression:
			e, err := energy.UnmarshalExpression(f.Bytes)
			if err != nil {
				return err
			}
			exprs = append(exprs, e)
		case fieldTotal:
			total = f.String()
		case fieldCached:
			return decodeEntry(f.Bytes, cached)
		case fieldParameter:
			return decodeEntry(f.Bytes, params)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !seen {
		return nil, errors.Version("encoded forcefield set has no format version").
			WithDetail(fmt.Sprintf("expected %d", FormatVersion))
	}

	st := s.st
	for _, e := range exprs {
		if err := st.reg.Add(e, st); err != nil {
			return nil, err
		}
	}
	if total != "" {
		info, ok := st.reg.InfoByID(total)
		if !ok {
			return nil, errors.New(errors.CodeSerialization, "total names an unregistered function").WithDetail(total)
		}
		if err := st.reg.SetTotal(info.Expression(), st); err != nil {
			return nil, err
		}
	}
	for k, v := range cached {
		st.cache.Store(k, v)
	}
	st.params = params
	s.Reindex()
	if err := s.CheckConsistency(); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeEntry(b []byte, into map[string]float64) error {
	var (
		key   string
		value float64
	)
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case entryKey:
			key = f.String()
		case entryValue:
			value = f.Float()
		}
		return nil
	})
	if err != nil {
		return err
	}
	into[key] = value
	return nil
}

//Personal.AI order the ending
