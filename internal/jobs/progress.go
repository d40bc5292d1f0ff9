package jobs

// ItemProgress converts multi-item completion into a 0-100 percentage:
// finished items contribute whole shares, the in-flight item contributes
// its own fraction of one share.
func ItemProgress(done, total, currentPercent int) int {
	if total <= 0 {
		return clampPercent(currentPercent)
	}
	if done >= total {
		return 100
	}
	current := clampPercent(currentPercent)
	return clampPercent(done*100/total + current/total)
}
