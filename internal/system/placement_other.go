//go:build !linux

package system

import "xthi/internal/model"

const placementSupported = false

func currentCPU() int {
	return model.Unavailable
}

func currentAffinity() string {
	return model.NoValue
}

func currentTID() int {
	return model.Unavailable
}
