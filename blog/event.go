package blog

// Event is a request from the blog screen.
type Event interface{ isEvent() }

// SearchEvent asks for one page of posts matching Query. Page < 1 means 1.
type SearchEvent struct {
	Query string
	Page  int
}

// NoneEvent does nothing. It lets a screen reset its pending event.
type NoneEvent struct{}

var EventNone Event = NoneEvent{}

func (SearchEvent) isEvent() {}
func (NoneEvent) isEvent()   {}
