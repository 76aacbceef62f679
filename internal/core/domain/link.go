package domain

// RouterLink represents a beneficiary-to-router link from the directory feed.
type RouterLink struct {
	Address string
	Name    string
}
