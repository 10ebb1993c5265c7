// Package calendar connects the availability engine to Google Calendar.
//
// Client wraps the Calendar v3 service. FreeBusyProvider answers busy-interval
// queries through freebusy.query and implements availability.Provider; Booker
// creates the event for a chosen slot.
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := calendar.NewClientForAccount(ctx, "default", google.NewFileTokenProvider())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry := availability.NewRegistry()
//	registry.SetDefault(calendar.NewFreeBusyProvider(client))
package calendar
