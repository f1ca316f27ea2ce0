package model

// BuildingType is the plaintext code of a building kind
type BuildingType uint8

const (
	BuildingHouse    BuildingType = 1
	BuildingFarm     BuildingType = 2
	BuildingWorkshop BuildingType = 3
	BuildingCastle   BuildingType = 4
)

// Building describes one entry of the catalog
type Building struct {
	Type BuildingType
	Name string
	Cost uint64
}

// Catalog is the fixed list of placeable buildings, ordered by type
var Catalog = [...]Building{
	{Type: BuildingHouse, Name: "house", Cost: 100},
	{Type: BuildingFarm, Name: "farm", Cost: 200},
	{Type: BuildingWorkshop, Name: "workshop", Cost: 400},
	{Type: BuildingCastle, Name: "castle", Cost: 1000},
}

// LookupBuilding returns the catalog entry for a plaintext type code.
// Only used on plaintext surfaces (CLI, catalog endpoint), never on secrets.
func LookupBuilding(t BuildingType) (Building, bool) {
	for _, b := range Catalog {
		if b.Type == t {
			return b, true
		}
	}
	return Building{}, false
}
