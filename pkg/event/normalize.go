package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// MCP tool names follow the form mcp__<server>__<tool>. Some platforms
// register servers under a "-mcp" alias, producing mcp__zen-mcp__chat for
// what other platforms call mcp__zen__chat. Normalization strips that
// alias so rollups line up across platforms.

const mcpPrefix = "mcp__"

// serverAliasSuffixes are stripped from the server segment during
// normalization.
var serverAliasSuffixes = []string{"-mcp", "_mcp"}

// IsMCPTool reports whether name follows the MCP tool naming convention.
func IsMCPTool(name string) bool {
	return strings.HasPrefix(name, mcpPrefix)
}

// NormalizeToolName canonicalizes an MCP tool name.
//
// mcp__zen__chat     -> mcp__zen__chat (unchanged)
// mcp__zen-mcp__chat -> mcp__zen__chat (server alias stripped)
//
// Non-MCP names are returned unchanged.
func NormalizeToolName(name string) string {
	server, tool, ok := splitMCPName(name)
	if !ok {
		return name
	}
	return mcpPrefix + server + "__" + tool
}

// ServerName extracts the normalized server segment from a tool name.
// Non-MCP names map to "unknown".
func ServerName(name string) string {
	server, _, ok := splitMCPName(name)
	if !ok {
		return "unknown"
	}
	return server
}

// splitMCPName splits an MCP tool name into its normalized server and tool
// segments. Returns ok=false for names not matching the convention.
func splitMCPName(name string) (server, tool string, ok bool) {
	if !strings.HasPrefix(name, mcpPrefix) {
		return "", "", false
	}

	rest := name[len(mcpPrefix):]
	idx := strings.Index(rest, "__")
	if idx <= 0 || idx+2 >= len(rest) {
		return "", "", false
	}

	server = rest[:idx]
	tool = rest[idx+2:]

	for _, suffix := range serverAliasSuffixes {
		if strings.HasSuffix(server, suffix) && len(server) > len(suffix) {
			server = server[:len(server)-len(suffix)]
			break
		}
	}

	return server, tool, true
}

// Fingerprint computes a stable content hash over call arguments for
// duplicate detection. The input is canonicalized through JSON (object
// keys sorted by encoding/json) so semantically identical argument sets
// hash identically regardless of key order in the wire record.
//
// Input that is not valid JSON is hashed verbatim.
func Fingerprint(rawArgs string) string {
	trimmed := strings.TrimSpace(rawArgs)
	if trimmed == "" {
		return ""
	}

	canonical := []byte(trimmed)

	var decoded interface{}
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		if encoded, err := json.Marshal(decoded); err == nil {
			canonical = encoded
		}
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
