// Package model defines the records shared by the scheduling engine: participants,
// their weekly availability and blocked time, meetings and the slots offered for
// booking.
//
// The types carry no persistence or transport concerns. Stores in internal/store
// persist them; internal/availability and internal/meetings operate on them.
package model
