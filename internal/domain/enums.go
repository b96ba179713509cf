package domain

import (
	"fmt"
	"time"
)

type TripStatus string

const (
	TripScheduled TripStatus = "scheduled"
	TripPending   TripStatus = "pending"
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// Claimable reports whether a driver may submit the PIN of a trip in this status.
func (s TripStatus) Claimable() bool {
	switch s {
	case TripScheduled, TripPending, TripActive:
		return true
	}
	return false
}

// Terminal reports whether the trip has left the tracked lifecycle.
func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

type SnapshotKind string

const LastLocation SnapshotKind = "last_location"

// CheckpointKind names the snapshot taken once the given elapsed time is reached.
func CheckpointKind(threshold time.Duration) SnapshotKind {
	h := int(threshold / time.Hour)
	if threshold%time.Hour == 0 {
		return SnapshotKind(fmt.Sprintf("%d_hour", h))
	}
	return SnapshotKind(fmt.Sprintf("%d_min", int(threshold/time.Minute)))
}

// Identity is the tagged variant of a driver record.
type Identity string

const (
	// IdentityPending is created by the first OTP request.
	IdentityPending Identity = "pending"
	// IdentityRegistered has completed registration.
	IdentityRegistered Identity = "registered"
	// IdentityUnverified was created on the fly by start-trip.
	IdentityUnverified Identity = "unverified"
	// IdentitySynthetic is derived from a trip PIN and has no phone.
	IdentitySynthetic Identity = "synthetic"
)

type NetworkType string

const (
	NetworkOffline NetworkType = "offline"
	NetworkWiFi    NetworkType = "wifi"
	Network4G      NetworkType = "4g"
	Network3G      NetworkType = "3g"
	NetworkUnknown NetworkType = "unknown"
)

// ParseNetworkType maps client labels to the known set; anything else is unknown.
func ParseNetworkType(s string) NetworkType {
	switch NetworkType(s) {
	case NetworkOffline, NetworkWiFi, Network4G, Network3G:
		return NetworkType(s)
	case "":
		return ""
	}
	return NetworkUnknown
}
