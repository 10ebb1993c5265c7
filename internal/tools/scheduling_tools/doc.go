// Package scheduling_tools provides the MCP tools that expose the availability
// engine to AI assistants.
//
// find_meeting_slots ranks common free slots for a set of participants on a
// date. query_freebusy returns the normalized busy intervals the engine would
// use. book_meeting_slot creates the calendar event for a chosen slot and is
// only registered when write operations are enabled and a booker is configured.
//
// Results whose partialFailures list is not empty were computed without those
// participants' calendars and may conflict with them; the tools say so
// explicitly.
package scheduling_tools
