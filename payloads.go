// SPDX-FileCopyrightText: 2024 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtp

// https://www.iana.org/assignments/rtp-parameters/rtp-parameters.xhtml

// RFC 5371/5372 registers no static payload type for JPEG 2000; a session
// must negotiate one out of the dynamic range (capability negotiation
// itself is out of scope here).
const (
	// PayloadTypeFirstDynamic is the first non-static payload type.
	PayloadTypeFirstDynamic = 35
	// PayloadTypeDefaultDynamic is a default dynamic payload type used in the wild.
	PayloadTypeDefaultDynamic = 101
)
