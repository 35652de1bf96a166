package catalog

// Movie is the persisted record. Column names and types are the contract
// shared by the CSV export, the relational table and the API.
type Movie struct {
	Title    string  `json:"title"`
	Rating   float64 `json:"rating"`
	Votes    int     `json:"votes"`
	Genre    string  `json:"genre"`
	Duration int     `json:"duration"`
}

// Column names in persisted order.
const (
	ColumnTitle    = "Title"
	ColumnRating   = "Rating"
	ColumnVotes    = "Votes"
	ColumnGenre    = "Genre"
	ColumnDuration = "Duration"
)

var Columns = []string{ColumnTitle, ColumnRating, ColumnVotes, ColumnGenre, ColumnDuration}
