package conversations

import "strings"

// normalizeAvatar rewrites a server-relative avatar path into a fully
// qualified URL. Absolute URLs pass through unchanged; empty stays empty.
func normalizeAvatar(baseURL, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base := strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}

// normalize rewrites every avatar reference in place.
func normalize(convs []Conversation, baseURL string) {
	if baseURL == "" {
		return
	}
	for i := range convs {
		if convs[i].Other != nil {
			convs[i].Other.AvatarURL = normalizeAvatar(baseURL, convs[i].Other.AvatarURL)
		}
		for j := range convs[i].Team {
			convs[i].Team[j].AvatarURL = normalizeAvatar(baseURL, convs[i].Team[j].AvatarURL)
		}
	}
}
