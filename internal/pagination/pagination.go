package pagination

// PageSize is fixed for all list endpoints.
const PageSize = 10

// HasMore signals a possible next page: true iff the page came back full.
// An implicit signal, cheaper than a total count.
func HasMore(itemsReturned int) bool {
	return itemsReturned == PageSize
}
