package player

// findMP3FrameSync returns the offset of the first MPEG audio frame sync
// (0xFF followed by a byte with the top three bits set), or -1.
func findMP3FrameSync(data []byte) int {
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xE0 == 0xE0 {
			return i
		}
	}
	return -1
}
