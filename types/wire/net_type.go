// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
)

// JaxNet represents which network a chain belongs to.  It is mixed into the
// database metadata so a store opened for one network is never reused for
// another one.
type JaxNet uint32

const (
	// MainNet represents the main network.
	MainNet JaxNet = 0x6a_61_78_64

	// TestNet represents the test network.
	TestNet JaxNet = 0x76_6e_64_6d

	// RegTest represents the regression test network.
	RegTest JaxNet = 0x12141c16
)

var bnStrings = map[JaxNet]string{
	MainNet: "MainNet",
	TestNet: "TestNet",
	RegTest: "RegTest",
}

// String returns the JaxNet in human-readable form.
func (n JaxNet) String() string {
	if s, ok := bnStrings[n]; ok {
		return s
	}

	return fmt.Sprintf("Unknown JaxNet (%d)", uint32(n))
}
