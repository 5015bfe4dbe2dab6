// internal/engine/configstore/defaults.go
package configstore

import "rag-engine/internal/engine/modes"

// Defaults returns the built-in neutral template per mode. They reference
// only the core client keys and the system tokens, so any valid client
// record resolves them without extra attributes. A loaded template set
// overrides them mode by mode.
func Defaults() map[string]string {
	header := "You are a market research assistant for {display_name}, " +
		"a {industry} company operating in {market}.\n\n" +
		"Client profile:\n{client_profile}\n\n" +
		"Question: {query}\n\n" +
		"Retrieved evidence:\n{retrieved_passages}\n\n"

	return map[string]string{
		modes.ModePure: header +
			"Answer using only the retrieved evidence.",
		modes.ModeExport: header +
			"Answer using only the retrieved evidence. Structure the findings " +
			"so they are ready for export, as a table where the data allows it.",
		modes.ModeHybrid: header +
			"Blend the retrieved evidence with your own analysis. Target mix: " +
			"{grounding_ratio}% grounded in evidence, {generation_ratio}% reasoned extension.",
		modes.ModePersona: header +
			"Answer in the established voice of {display_name}, staying consistent " +
			"with how the brand speaks to its {market} audience.",
		modes.ModeSuggest: header +
			"Propose concrete next steps for {display_name}, building on the " +
			"evidence where it exists and flagging where it does not.",
		modes.ModeVisual: header +
			"Describe the finding and the chart that would present it best, " +
			"including axes and the series to plot.",
		modes.ModeCreative: header +
			"Develop creative directions for {display_name} that a {industry} " +
			"marketer in {market} could act on.",
	}
}
