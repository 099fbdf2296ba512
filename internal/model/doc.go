package model

// Package model defines domain data structures shared across the app:
// operation status enums and media timecodes. Structures are designed
// for direct binding in observers and explicit state transitions.
