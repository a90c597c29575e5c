package uring

import (
	"github.com/brickingsoft/vortex/pkg/kernel"
)

// Feature names an optional driver capability. Capabilities are derived
// from the running kernel release at Open; operation wrappers that rely on
// one are responsible for checking.
type Feature uint8

const (
	// FeatureCurrentFilePosition allows offset -1 reads and writes.
	FeatureCurrentFilePosition Feature = iota
	// FeatureFileOps covers openat, close, statx, fallocate, rename, unlink.
	FeatureFileOps
	FeatureTimeout
	FeatureLinkTimeout
	FeatureCancel
	FeatureSplice
	FeaturePollMultishot
	FeatureAcceptMultishot
	featureCount
)

var featureVersions = [featureCount]kernel.Version{
	FeatureCurrentFilePosition: {Major: 5, Minor: 6},
	FeatureFileOps:             {Major: 5, Minor: 6},
	FeatureTimeout:             {Major: 5, Minor: 4},
	FeatureLinkTimeout:         {Major: 5, Minor: 5},
	FeatureCancel:              {Major: 5, Minor: 5},
	FeatureSplice:              {Major: 5, Minor: 7},
	FeaturePollMultishot:       {Major: 5, Minor: 13},
	FeatureAcceptMultishot:     {Major: 5, Minor: 19},
}

type capabilities uint32

func probeCapabilities() capabilities {
	v := kernel.Get()
	if !v.Valid() {
		return 0
	}
	caps := capabilities(0)
	for f := Feature(0); f < featureCount; f++ {
		if kernel.Compare(v, featureVersions[f]) >= 0 {
			caps |= 1 << f
		}
	}
	return caps
}

func (c capabilities) has(f Feature) bool {
	return c&(1<<f) != 0
}
