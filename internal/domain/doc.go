// Package domain models public warning messages as delivered by a Home
// Assistant sensor entity and the pure transforms applied to them before
// display.
//
// # Data Source
//
// The sensor exposes an "alerts" attribute: a JSON array whose entries come in
// two shapes. Integrations that forward the Swedish crisis information feed
// (Krisinformation) publish Common Alerting Protocol (CAP) messages; older
// integrations publish a flat record per alert.
//
// CAP shape:
//
//	{
//	  "identifier": "...", "sender": "...", "msgType": "Alert", "sent": "...",
//	  "info": [
//	    {"language": "sv-SE", "event": "...", "severity": "Severe",
//	     "headline": "...", "description": "...", "instruction": "...",
//	     "web": "https://...", "effective": "...", "onset": "...", "expires": "...",
//	     "area": [{"areaDesc": "Stockholms län"}, ...]},
//	    {"language": "en-US", ...}
//	  ]
//	}
//
// "info" may also be a single object. A record is treated as CAP when any of
// info, msgType, sender or identifier is present.
//
// Legacy shape:
//
//	{"severity": "...", "event": "...", "area": "..." | "areas": "...",
//	 "sent": "..." | "published": "...", "description": "..."}
//
// # Language Selection
//
// Multi-language CAP messages carry one info block per language. The block
// is chosen by trying, in order: the host language, its primary subtag,
// sv-se, sv, en-us, en. Matching is case-insensitive on the block's
// "language" field. See [PickInfo].
//
// # Severity
//
// CAP severities are ranked extreme > severe > moderate > minor > other.
// Records that survive normalization without a severity are labelled
// "Unknown". See [SeverityRank].
//
// # Timestamps
//
// Timestamps are kept as the strings the source sent. They are parsed only
// for ordering and display; anything unparsable orders as the Unix epoch.
// See [ParseTimestamp].
package domain
