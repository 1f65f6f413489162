package store

// IDAllocator hands out record ids. It is not safe for concurrent use; the
// master store serializes calls on its write path.
type IDAllocator interface {
	// NextID returns the current id and advances the counter by one.
	NextID() int
	// CheckID reports whether id could have been issued since the last SetStartID.
	CheckID(id int) bool
	CurrentID() int
	// SetStartID resets both the floor and the counter, used when restoring a snapshot.
	SetStartID(id int)
}

const incrementerName = "incrementer"

// Incrementer issues sequential ids starting at a floor.
type Incrementer struct {
	startID   int
	currentID int
}

func NewIncrementer(startID int) *Incrementer {
	return &Incrementer{startID: startID, currentID: startID}
}

func (in *Incrementer) NextID() int {
	id := in.currentID
	in.currentID++
	return id
}

func (in *Incrementer) CheckID(id int) bool {
	return id >= in.startID && id <= in.currentID-1
}

func (in *Incrementer) CurrentID() int {
	return in.currentID
}

func (in *Incrementer) SetStartID(id int) {
	in.startID = id
	in.currentID = id
}

// algorithmName is written into snapshots next to the counter.
func algorithmName(a IDAllocator) string {
	if _, ok := a.(*Incrementer); ok {
		return incrementerName
	}
	return "custom"
}
