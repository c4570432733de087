package delta

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/s4lvi/historyengine-sub002/apperr"
	"github.com/s4lvi/historyengine-sub002/matrix"
)

// Codec versions (spec.md §4.7). v1 stores full-precision loyalty and the
// complete troop-density layer; v2 quantizes loyalty to a single byte and
// omits troop density entirely, reseeding it from troopCount on the first
// post-restore mobilization tick.
const (
	Version1 uint8 = 1
	Version2 uint8 = 2
)

// Serialize encodes only the dynamic layers named by spec.md §4.7
// (ownership, populationDensity, defenseStrength, resourceClaim*, loyalty)
// plus the nation registry, in the given codec version. Static layers are
// not stored; they reconstruct from map data on load.
func Serialize(m *matrix.Matrix, version uint8) ([]byte, error) {
	if version != Version1 && version != Version2 {
		return nil, apperr.Invariant("serialize", fmt.Errorf("unsupported version %d", version))
	}
	buf := new(bytes.Buffer)
	w := func(v any) error { return binary.Write(buf, binary.LittleEndian, v) }

	if err := w(version); err != nil {
		return nil, err
	}
	if err := w(uint32(m.W)); err != nil {
		return nil, err
	}
	if err := w(uint32(m.H)); err != nil {
		return nil, err
	}
	if err := w(uint32(m.N)); err != nil {
		return nil, err
	}

	size := m.W * m.H
	ownership := make([]int8, size)
	popDensity := make([]float32, size)
	defense := make([]float32, size)
	claimOwner := make([]int8, size)
	claimProgress := make([]float32, size)
	for i := 0; i < size; i++ {
		ownership[i] = m.OwnerAt(i)
		popDensity[i] = m.PopulationDensityAt(i)
		defense[i] = m.DefenseAt(i)
		claimOwner[i] = m.ResourceClaimOwner(i)
		claimProgress[i] = m.ResourceClaimProgress(i)
	}
	for _, s := range []any{ownership, popDensity, defense, claimOwner, claimProgress} {
		if err := w(s); err != nil {
			return nil, err
		}
	}

	if version == Version1 {
		loyalty := make([]float32, size*m.N)
		troop := make([]float32, size*m.N)
		for n := int8(0); int(n) < m.N; n++ {
			for i := 0; i < size; i++ {
				loyalty[int(n)*size+i] = m.LoyaltyAt(n, i)
				troop[int(n)*size+i] = m.TroopDensityAt(n, i)
			}
		}
		if err := w(loyalty); err != nil {
			return nil, err
		}
		if err := w(troop); err != nil {
			return nil, err
		}
	} else {
		loyalty := make([]uint8, size*m.N)
		for n := int8(0); int(n) < m.N; n++ {
			for i := 0; i < size; i++ {
				loyalty[int(n)*size+i] = uint8(math.Round(float64(m.LoyaltyAt(n, i)) * 255))
			}
		}
		if err := w(loyalty); err != nil {
			return nil, err
		}
	}

	if err := w(uint32(m.N)); err != nil {
		return nil, err
	}
	for n := int8(0); int(n) < m.N; n++ {
		nat := m.Nation(n)
		if nat == nil {
			if err := w(true); err != nil {
				return nil, err
			}
			continue
		}
		if err := w(false); err != nil {
			return nil, err
		}
		if err := writeString(buf, nat.Owner); err != nil {
			return nil, err
		}
		if err := w(nat.Population); err != nil {
			return nil, err
		}
		if err := w(nat.TroopCount); err != nil {
			return nil, err
		}
		if err := w(nat.TroopTarget); err != nil {
			return nil, err
		}
		if err := w(uint8(nat.Status)); err != nil {
			return nil, err
		}
		if err := w(uint16(len(nat.Cities))); err != nil {
			return nil, err
		}
		for _, c := range nat.Cities {
			if err := w(int32(c.X)); err != nil {
				return nil, err
			}
			if err := w(int32(c.Y)); err != nil {
				return nil, err
			}
			if err := writeString(buf, c.Name); err != nil {
				return nil, err
			}
			if err := w(uint8(c.Type)); err != nil {
				return nil, err
			}
		}
	}

	// Copy out of the buffer into a fresh, independently-owned slice: bytes.Buffer
	// may retain or reuse its backing array, and a serialized record must not
	// alias it (spec.md §9 "shared buffer pools").
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// Deserialize decodes a record produced by Serialize into a fresh Matrix.
// cells and resistance reconstruct the static layers, since persisted
// records carry only dynamic state. Callers need not rebuild chunk/bbox
// bookkeeping after restore: Deserialize already calls
// RebuildCountersFromOwnership and RebuildChunkBorderFlags before
// returning.
func Deserialize(data []byte, cells [][]matrix.Cell, resistance func(x, y int, c matrix.Cell) float32) (*matrix.Matrix, error) {
	// Defensive fresh copy: callers may pass a slice backed by a pooled
	// buffer (e.g. a leveldb iterator value); never read through that
	// alias after this function returns.
	own := make([]byte, len(data))
	copy(own, data)
	r := bytes.NewReader(own)

	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, apperr.Invariant("deserialize", err)
	}
	if version != Version1 && version != Version2 {
		return nil, apperr.Invariant("deserialize", fmt.Errorf("unsupported version %d", version))
	}
	var w, h, n uint32
	if err := binary.Read(r, binary.LittleEndian, &w); err != nil {
		return nil, apperr.Invariant("deserialize", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, apperr.Invariant("deserialize", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, apperr.Invariant("deserialize", err)
	}
	if len(cells) != int(h) || (int(h) > 0 && len(cells[0]) != int(w)) {
		return nil, apperr.Invariant("deserialize", fmt.Errorf("map dimensions %dx%d do not match record %dx%d", len(cells[0]), len(cells), w, h))
	}

	m := matrix.New(int(w), int(h), int(n))
	if err := m.PopulateStatic(cells, resistance); err != nil {
		return nil, apperr.Invariant("deserialize", err)
	}

	size := int(w) * int(h)
	ownership := make([]int8, size)
	popDensity := make([]float32, size)
	defense := make([]float32, size)
	claimOwner := make([]int8, size)
	claimProgress := make([]float32, size)
	for _, s := range []any{ownership, popDensity, defense, claimOwner, claimProgress} {
		if err := binary.Read(r, binary.LittleEndian, s); err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
	}
	for i := 0; i < size; i++ {
		if ownership[i] >= 0 {
			x, y := i%int(w), i/int(w)
			m.SetOwner(x, y, ownership[i])
		}
		m.SetPopulationDensityAt(i, popDensity[i])
		m.SetDefenseAt(i, defense[i])
		m.SetResourceClaim(i, claimOwner[i], claimProgress[i])
	}

	if version == Version1 {
		loyalty := make([]float32, size*int(n))
		troop := make([]float32, size*int(n))
		if err := binary.Read(r, binary.LittleEndian, loyalty); err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
		if err := binary.Read(r, binary.LittleEndian, troop); err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
		for nn := int8(0); int(nn) < int(n); nn++ {
			sum := 0.0
			for i := 0; i < size; i++ {
				v := troop[int(nn)*size+i]
				m.SetLoyaltyAt(nn, i, loyalty[int(nn)*size+i])
				m.SetTroopDensityAt(nn, i, v, math.MaxFloat32)
				if m.OwnerAt(i) == nn {
					sum += float64(v)
				}
			}
			// Restore the cached sum so the first mobilization tick keeps the
			// restored density instead of reseeding it.
			m.SetTroopDensitySum(nn, sum)
		}
	} else {
		loyalty := make([]uint8, size*int(n))
		if err := binary.Read(r, binary.LittleEndian, loyalty); err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
		for nn := int8(0); int(nn) < int(n); nn++ {
			for i := 0; i < size; i++ {
				m.SetLoyaltyAt(nn, i, float32(loyalty[int(nn)*size+i])/255)
			}
		}
	}

	var nationCount uint32
	if err := binary.Read(r, binary.LittleEndian, &nationCount); err != nil {
		return nil, apperr.Invariant("deserialize", err)
	}
	for nn := int8(0); int(nn) < int(nationCount); nn++ {
		var retired bool
		if err := binary.Read(r, binary.LittleEndian, &retired); err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
		if retired {
			continue
		}
		owner, err := readString(r)
		if err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
		var population, troopCount float64
		var troopTarget float32
		var status uint8
		if err := binary.Read(r, binary.LittleEndian, &population); err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &troopCount); err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &troopTarget); err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &status); err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
		var cityCount uint16
		if err := binary.Read(r, binary.LittleEndian, &cityCount); err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
		cities := make([]matrix.City, cityCount)
		for ci := range cities {
			var x, y int32
			if err := binary.Read(r, binary.LittleEndian, &x); err != nil {
				return nil, apperr.Invariant("deserialize", err)
			}
			if err := binary.Read(r, binary.LittleEndian, &y); err != nil {
				return nil, apperr.Invariant("deserialize", err)
			}
			name, err := readString(r)
			if err != nil {
				return nil, apperr.Invariant("deserialize", err)
			}
			var typ uint8
			if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
				return nil, apperr.Invariant("deserialize", err)
			}
			cities[ci] = matrix.City{X: int(x), Y: int(y), Name: name, Type: matrix.CityType(typ)}
		}
		if err := m.RestoreNation(nn, owner, population, troopCount, troopTarget, matrix.NationStatus(status), cities); err != nil {
			return nil, apperr.Invariant("deserialize", err)
		}
	}

	m.RebuildCountersFromOwnership()
	m.RebuildChunkBorderFlags()
	return m, nil
}
