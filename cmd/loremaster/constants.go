package main

// DefaultListLimit caps list commands when --limit is not given.
const DefaultListLimit = 50
