package config

// Specification of page sizing mode: device uses the physical screen
// geometry, document uses a fixed 800x1000 layout.
// ENUM(device, document)
type LayoutMode int
