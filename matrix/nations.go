package matrix

import "github.com/s4lvi/historyengine-sub002/apperr"

// FoundNation registers owner as a new nation and claims (x,y) with loyalty
// 1 (spec.md §3.6, §6 "foundNation"). It fails if owner already has a
// nation, (x,y) is ocean, or no nation slot is free.
func (m *Matrix) FoundNation(owner string, x, y int) (int8, error) {
	if !m.InBounds(x, y) {
		return -1, apperr.Command("foundNation", "out of bounds")
	}
	if _, ok := m.reg.lookup(owner); ok {
		return -1, apperr.Command("foundNation", "owner already has a nation")
	}
	if m.Ocean(x, y) {
		return -1, apperr.Command("foundNation", "target cell is ocean")
	}
	n, err := m.reg.register(owner)
	if err != nil {
		return -1, apperr.Capacity("nation", m.N)
	}
	m.nations[n] = &Nation{Owner: owner, Status: StatusActive}
	m.SetOwner(x, y, n)
	m.SetLoyaltyAt(n, m.Idx(x, y), 1.0)
	return n, nil
}

// BuildCity records a new structure for owner at (x,y) (spec.md §6
// "buildCity"). It fails if the cell is not owned by owner.
func (m *Matrix) BuildCity(owner string, x, y int, name string, typ CityType) error {
	n, ok := m.reg.lookup(owner)
	if !ok {
		return apperr.Command("buildCity", "unknown owner")
	}
	if !m.InBounds(x, y) || m.Owner(x, y) != n {
		return apperr.Command("buildCity", "cell not owned by owner")
	}
	nat := m.nations[n]
	nat.Cities = append(nat.Cities, City{X: x, Y: y, Name: name, Type: typ})
	return nil
}

// RestoreNation re-registers owner at the exact index n and installs the
// given bookkeeping fields, for use by the persistence codec (spec.md
// §4.7): nation-cell layers (loyalty, troopDensity) are indexed by slot, so
// a restored nation must land on the same index it serialized from.
func (m *Matrix) RestoreNation(n int8, owner string, population, troopCount float64, troopTarget float32, status NationStatus, cities []City) error {
	if err := m.reg.registerAt(owner, n); err != nil {
		return apperr.Invariant("restoreNation", err)
	}
	m.nations[n] = &Nation{
		Owner: owner, Population: population, TroopCount: troopCount,
		TroopTarget: troopTarget, Status: status, Cities: cities,
	}
	return nil
}

// Capital returns the capital city of nation n, if it has founded one.
func (m *Matrix) Capital(n int8) (City, bool) {
	nat := m.Nation(n)
	if nat == nil {
		return City{}, false
	}
	for _, c := range nat.Cities {
		if c.Type == CityCapital {
			return c, true
		}
	}
	return City{}, false
}

// Defeat transitions nation n to StatusDefeated and clears its dynamic
// per-nation-cell state (loyalty, troop density, resource claims), but
// keeps its registry slot retired until matrix re-creation (spec.md §3.6).
// Cells it owned are reverted to Unowned through the centralized mutator.
func (m *Matrix) Defeat(n int8) {
	nat := m.Nation(n)
	if nat == nil || nat.Status == StatusDefeated {
		return
	}
	nat.Status = StatusDefeated
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if m.Owner(x, y) == n {
				m.SetOwner(x, y, Unowned)
			}
		}
	}
	base := int(n) * m.size
	for i := 0; i < m.size; i++ {
		m.loyalty[base+i] = 0
		m.troopDensity[base+i] = 0
		if m.resourceClaimOwner[i] == n {
			m.resourceClaimOwner[i] = Unowned
			m.resourceClaimProgress[i] = 0
		}
	}
	m.troopDensitySum[n] = 0
}

// ResourceClaimOwner / ResourceClaimProgress access the dynamic resource
// capture layers (spec.md §3.1).
func (m *Matrix) ResourceClaimOwner(i int) int8        { return m.resourceClaimOwner[i] }
func (m *Matrix) ResourceClaimProgress(i int) float32  { return m.resourceClaimProgress[i] }
func (m *Matrix) SetResourceClaim(i int, n int8, p float32) {
	m.resourceClaimOwner[i] = n
	m.resourceClaimProgress[i] = p
}
func (m *Matrix) ResourceType(i int) uint8  { return m.resourceType[i] }
func (m *Matrix) ResourceLevel(i int) uint8 { return m.resourceLevel[i] }

// FindArrow returns the arrow with the given ID belonging to owner, if any.
func (m *Matrix) FindArrow(owner string, id ID) (*Arrow, error) {
	n, ok := m.reg.lookup(owner)
	if !ok {
		return nil, apperr.Command("arrow", "unknown owner")
	}
	nat := m.nations[n]
	for _, a := range nat.Arrows {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, apperr.Command("arrow", "unknown arrow id")
}

// RemoveArrow deletes the arrow with the given ID from owner's active
// orders (spec.md §6 "clearArrow").
func (m *Matrix) RemoveArrow(owner string, id ID) error {
	n, ok := m.reg.lookup(owner)
	if !ok {
		return apperr.Command("arrow", "unknown owner")
	}
	nat := m.nations[n]
	for i, a := range nat.Arrows {
		if a.ID == id {
			nat.Arrows = append(nat.Arrows[:i], nat.Arrows[i+1:]...)
			return nil
		}
	}
	return apperr.Command("arrow", "unknown arrow id")
}
