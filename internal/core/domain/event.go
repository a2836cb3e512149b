package domain

// EventType is the kind of registry event recorded by the indexing service.
type EventType string

const (
	EventTypeCreateTable EventType = "ContractCreateTable"
	EventTypeRunSQL      EventType = "ContractRunSQL"
)

// RawEvent is one SQL mutation row returned by a range query, plus the
// secondary lookups resolved for it.
type RawEvent struct {
	ChainID     ChainID
	BlockNumber uint64
	TxHash      string
	EventType   EventType
	Caller      *string
	TableID     string
	Statement   string

	// TableName is nil when the table lookup returned 404, which means the
	// create statement itself failed.
	TableName *string
	// Error is the receipt error of a reverted statement.
	Error *string
	// BaseURL is the indexing endpoint that served the row.
	BaseURL string
}

// HasError reports whether the originating transaction failed.
func (e RawEvent) HasError() bool {
	return e.Error != nil
}

// Destination selects which channel an event is posted to.
type Destination string

const (
	DestinationInternal Destination = "internal"
	DestinationExternal Destination = "external"
)

// ClassifiedEvent is a RawEvent with its routing decision.
type ClassifiedEvent struct {
	RawEvent
	Destination Destination
}

// Partition splits classified events by destination, preserving fetch order.
type Partition struct {
	Internal []ClassifiedEvent
	External []ClassifiedEvent
}

// Len returns the number of events in both partitions.
func (p Partition) Len() int {
	return len(p.Internal) + len(p.External)
}
