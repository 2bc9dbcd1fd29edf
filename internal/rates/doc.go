// Package rates fetches EUR and USD exchange rates from the PrivatBank
// archive API and encodes them as the date-keyed JSON report shared by the
// chat server and the exchange CLI.
package rates
