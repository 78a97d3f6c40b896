package models

// SDGMin and SDGMax bound valid Sustainable Development Goal numbers.
const (
	SDGMin = 1
	SDGMax = 17
)

// SDGGoal is an entry of the fixed UN goal reference table.
type SDGGoal struct {
	Number int    `json:"number" db:"number"`
	Name   string `json:"name" db:"name"`
	Color  string `json:"color" db:"color"`
}

var sdgGoals = [SDGMax]SDGGoal{
	{Number: 1, Name: "No Poverty", Color: "#E5243B"},
	{Number: 2, Name: "Zero Hunger", Color: "#DDA63A"},
	{Number: 3, Name: "Good Health and Well-being", Color: "#4C9F38"},
	{Number: 4, Name: "Quality Education", Color: "#C5192D"},
	{Number: 5, Name: "Gender Equality", Color: "#FF3A21"},
	{Number: 6, Name: "Clean Water and Sanitation", Color: "#26BDE2"},
	{Number: 7, Name: "Affordable and Clean Energy", Color: "#FCC30B"},
	{Number: 8, Name: "Decent Work and Economic Growth", Color: "#A21942"},
	{Number: 9, Name: "Industry, Innovation and Infrastructure", Color: "#FD6925"},
	{Number: 10, Name: "Reduced Inequalities", Color: "#DD1367"},
	{Number: 11, Name: "Sustainable Cities and Communities", Color: "#FD9D24"},
	{Number: 12, Name: "Responsible Consumption and Production", Color: "#BF8B2E"},
	{Number: 13, Name: "Climate Action", Color: "#3F7E44"},
	{Number: 14, Name: "Life Below Water", Color: "#0A97D9"},
	{Number: 15, Name: "Life on Land", Color: "#56C02B"},
	{Number: 16, Name: "Peace, Justice and Strong Institutions", Color: "#00689D"},
	{Number: 17, Name: "Partnerships for the Goals", Color: "#19486A"},
}

// SDGGoals returns a copy of the 17-goal reference table ordered by number.
func SDGGoals() []SDGGoal {
	goals := make([]SDGGoal, len(sdgGoals))
	copy(goals, sdgGoals[:])
	return goals
}

// LookupSDG resolves a goal by number.
func LookupSDG(number int) (SDGGoal, bool) {
	if !ValidSDG(number) {
		return SDGGoal{}, false
	}
	return sdgGoals[number-1], true
}

// ValidSDG reports whether number is within 1..17.
func ValidSDG(number int) bool {
	return number >= SDGMin && number <= SDGMax
}
