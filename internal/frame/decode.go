package frame

// Classify returns the bit a data width encodes.
func Classify(width uint16) byte {
	if width >= Threshold {
		return 1
	}
	return 0
}

// Decode converts a capture into a Reading. fault is the code recorded when
// the capture window closed; when set it takes precedence, since the widths
// of an aborted capture are meaningless.
//
// Decode has no side effects: the same input always gives the same Reading.
func Decode(widths []uint16, fault ErrorKind) Reading {
	if fault != NoError {
		return Reading{Error: fault}
	}
	if len(widths) < FrameEntries {
		return Reading{Error: IncompleteFrame}
	}
	if widths[0] > MaxResponseWidth {
		return Reading{Error: NoHandshakeLow}
	}
	for _, w := range widths[1:FrameEntries] {
		if w > MaxPulseWidth {
			return Reading{Error: StuckHigh}
		}
	}

	var f Frame
	for i, w := range widths[HandshakeEntries:FrameEntries] {
		f[i/8] = f[i/8]<<1 | Classify(w)
	}
	if !f.Valid() {
		return Reading{Error: ChecksumMismatch, Frame: f}
	}
	return Reading{
		Humidity:    f.Humidity(),
		Temperature: f.Temperature(),
		Valid:       true,
		Frame:       f,
	}
}

// Encode returns the widths a healthy sensor produces for f, handshake
// included. It is the inverse of Decode for valid frames.
func Encode(f Frame) []uint16 {
	w := make([]uint16, 0, FrameEntries)
	w = append(w, ResponseWidth, HandshakeWidth)
	for _, b := range f {
		for bit := 7; bit >= 0; bit-- {
			if b>>bit&1 == 1 {
				w = append(w, OneWidth)
			} else {
				w = append(w, ZeroWidth)
			}
		}
	}
	return w
}
