package analyze

// textVariant is the fallback for plain text and any unrecognized
// extension. Word statistics are computed by the dispatcher; there is
// no structure or dependency extraction for prose.
type textVariant struct{}

func (t *textVariant) extractStructure(string) string    { return "" }
func (t *textVariant) extractDependencies(string) string { return "" }
