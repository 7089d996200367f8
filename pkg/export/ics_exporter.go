package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// Event is a single calendar entry rendered into an ICS feed.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// ICSExporter renders events into an iCalendar document.
type ICSExporter struct {
	productID string
	now       func() time.Time
}

// NewICSExporter constructs an ICS exporter.
func NewICSExporter(productID string) *ICSExporter {
	if productID == "" {
		productID = "-//fyp-portal//defense-schedule//EN"
	}
	return &ICSExporter{productID: productID, now: time.Now}
}

// Render produces a PUBLISH calendar with one VEVENT per event.
func (e *ICSExporter) Render(name string, events []Event) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(e.productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := e.now().UTC()
	for _, evt := range events {
		if evt.UID == "" {
			return nil, fmt.Errorf("ics event requires a uid")
		}
		if !evt.End.After(evt.Start) {
			return nil, fmt.Errorf("ics event %s ends before it starts", evt.UID)
		}
		vevent := cal.AddEvent(evt.UID)
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(evt.Start)
		vevent.SetEndAt(evt.End)
		vevent.SetSummary(evt.Summary)
		if evt.Location != "" {
			vevent.SetLocation(evt.Location)
		}
		if evt.Description != "" {
			vevent.SetDescription(evt.Description)
		}
	}
	return []byte(cal.Serialize()), nil
}
