package domain

// Category IDs match the seeded rows of the categories table.
const (
	CategoryEconomic      = 1
	CategoryEntertainment = 2
	CategoryPolitic       = 3
	CategoryLife          = 4
	CategorySport         = 5
	CategoryTechnology    = 6
)

const UnknownCategory = "Unknown"

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var categories = [...]Category{
	{ID: CategoryEconomic, Name: "Economic"},
	{ID: CategoryEntertainment, Name: "Entertainment"},
	{ID: CategoryPolitic, Name: "Politic"},
	{ID: CategoryLife, Name: "Life"},
	{ID: CategorySport, Name: "Sport"},
	{ID: CategoryTechnology, Name: "Technology"},
}

// Categories returns the fixed category list ordered by ID.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories[:])
	return out
}

func CategoryCount() int {
	return len(categories)
}

func ValidCategoryID(id int) bool {
	return id >= 1 && id <= len(categories)
}

// CategoryName maps an ID to its label, or UnknownCategory when out of range.
func CategoryName(id int) string {
	if !ValidCategoryID(id) {
		return UnknownCategory
	}
	return categories[id-1].Name
}
