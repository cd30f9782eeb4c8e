package domain

// QueryParams narrows a table read. String zero values mean "no filter".
// Time bounds are ISO-8601 strings compared lexicographically against the
// stored range key; StartTime is inclusive and EndTime exclusive.
type QueryParams struct {
	DeviceID  string
	ModelID   string
	StartTime string
	EndTime   string
	Limit     int
	NextToken string
	SortBy    string
	SortDesc  bool
}

// QueryPage is one page of results. NextToken is opaque; empty means the
// read is exhausted.
type QueryPage struct {
	Items     []Record
	NextToken string
}
