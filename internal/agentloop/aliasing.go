package agentloop

// CanonicalToolName translates the tool name the model actually called
// (which may be an adapter's opaque alias) back to the name the loop
// dispatches on, via the adapter's own BuildAliasMap. Reports false for a
// name the adapter never exposed.
func CanonicalToolName(aliasMap map[string]string, apiName string) (string, bool) {
	name, ok := aliasMap[apiName]
	return name, ok
}
