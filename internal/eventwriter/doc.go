// Package eventwriter writes one calendar event with an identity-aware
// conference request and a single bounded fallback.
//
// Delegated calendars get the minimal conference request; shared calendars
// get the full one with the Meet solution key. When the provider rejects the
// conference request the event is retried once without it. Transient
// failures are never retried because the first insert may have landed.
package eventwriter
