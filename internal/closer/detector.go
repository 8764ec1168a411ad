package closer

// FavorableSample reports whether a sampled block entropy value would be
// accepted by the on-chain program as a valid close: the last two hex
// characters of the blockhash are equal, i.e. the two nibbles of its final
// byte match. This is a client-side pre-filter to avoid wasting submissions;
// the authority is always the program's own evaluation of the entropy it
// observes at confirmation time, which may differ from what we sampled.
//
// Anything shorter than a full 32-byte blockhash fails closed.
func FavorableSample(entropy []byte) bool {
	if len(entropy) < 32 {
		return false
	}
	last := entropy[len(entropy)-1]
	return last>>4 == last&0x0f
}
