package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// REST endpoints relative to the configured base URL.
const (
	EndpointSignIn = "/auth/signin" // POST
	EndpointSignUp = "/auth/signup" // POST
	EndpointLogout = "/auth/logout" // POST
	EndpointMe     = "/auth/me"     // GET

	EndpointConversations      = "/history/conversations"    // GET
	EndpointConversationByID   = "/history/conversations/%s" // GET
	EndpointCreateConversation = "/chat/create-chat"         // POST
	EndpointSendMessage        = "/chat/send"                // POST
	EndpointDeleteConversation = "/chats/%s"                 // DELETE
)

// ConversationPath returns the fetch path for a conversation id.
func ConversationPath(id string) string {
	return fmt.Sprintf(EndpointConversationByID, url.PathEscape(id))
}

// DeleteConversationPath returns the delete path for a conversation id.
func DeleteConversationPath(id string) string {
	return fmt.Sprintf(EndpointDeleteConversation, url.PathEscape(id))
}

// routeLabel maps a concrete path back to its template so metric labels stay bounded.
func routeLabel(path string) string {
	for _, tmpl := range []string{EndpointConversationByID, EndpointDeleteConversation} {
		prefix := strings.TrimSuffix(tmpl, "%s")
		if strings.HasPrefix(path, prefix) && len(path) > len(prefix) {
			return prefix + "{id}"
		}
	}
	return path
}
