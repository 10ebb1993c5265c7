// Package msgraph reads Outlook free/busy data through the Microsoft Graph
// calendar/getSchedule API.
//
// The provider authenticates as an application with the client credentials
// grant and implements availability.Provider.
package msgraph
