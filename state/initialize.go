package state

import (
	"time"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		// decorative divider used when content carries a bare dinkus marker
		DefaultDinkus: []byte(`<svg viewBox="0 0 240 20" xmlns="http://www.w3.org/2000/svg">
  <path d="M10 10 H90
           M150 10 H230"
        stroke="black" stroke-width="1"/>
  <path d="M120 3 A7 7 0 1 1 119.9 3" fill="none" stroke="black" stroke-width="1"/>
</svg>`),
	}
}
