package services

import (
	"fmt"

	"github.com/lborres/fumble/core"
)

func endpoint(method, path string, access core.Access, operationID, description string) core.Endpoint {
	return core.Endpoint{
		Path:   path,
		Method: method,
		Access: access,
		Metadata: core.EndpointMetadata{
			OperationID: operationID,
			Description: description,
		},
	}
}

// BaseEndpoints returns the framework-agnostic route table, relative to the
// API base path. Adapters bind a handler to each OperationID.
func BaseEndpoints() []core.Endpoint {
	const (
		public  = core.AccessPublic
		session = core.AccessSession
		admin   = core.AccessAdmin
	)

	return []core.Endpoint{
		// Authentication
		endpoint("GET", "/auth/providers", public, "listProviders", "List the registered SSO providers"),
		endpoint("GET", "/auth/:provider/authorize", public, "authorize", "Redirect to the provider's consent page"),
		endpoint("GET", "/auth/:provider/callback", public, "ssoCallback", "Complete a provider sign-in and set the session cookie"),
		endpoint("POST", "/auth/verify", public, "verifyToken", "Verify a fumble token and return its user"),
		endpoint("POST", "/auth/refresh", public, "refreshToken", "Exchange a valid fumble token for a fresh one"),
		endpoint("POST", "/auth/sign-out", public, "signOut", "Clear the session cookie"),
		endpoint("GET", "/auth/session", session, "getSession", "Get the current session and user"),
		endpoint("POST", "/auth/:provider/link", session, "linkProvider", "Link a provider identity to the signed-in user"),
		endpoint("DELETE", "/auth/:provider", session, "unlinkProvider", "Unlink a provider identity from the signed-in user"),
		endpoint("POST", "/auth/:provider/refresh", session, "refreshProviderToken", "Rotate the stored provider tokens with the refresh token"),

		// Current user
		endpoint("GET", "/user", session, "getCurrentUser", "Get the signed-in user"),
		endpoint("GET", "/user/roles", session, "getUserRoles", "Get the signed-in user's Discord guild roles"),

		// Linked credentials
		endpoint("GET", "/account", session, "listLinks", "Get the link status of every provider"),
		endpoint("GET", "/account/worldanvil", session, "getWorldAnvilLink", "Get the WorldAnvil link status"),
		endpoint("POST", "/account/worldanvil", session, "linkWorldAnvil", "Link a WorldAnvil user token"),
		endpoint("DELETE", "/account/worldanvil", session, "unlinkWorldAnvil", "Remove the linked WorldAnvil token"),
		endpoint("GET", "/account/openai", session, "getOpenAILink", "Get the OpenAI link status"),
		endpoint("POST", "/account/openai", session, "linkOpenAI", "Link an OpenAI API key"),
		endpoint("DELETE", "/account/openai", session, "unlinkOpenAI", "Remove the linked OpenAI API key"),

		// Characters and sheets
		endpoint("GET", "/characters", session, "listCharacters", "List characters"),
		endpoint("POST", "/characters", session, "createCharacter", "Create a character"),
		endpoint("GET", "/characters/slug/:slug", session, "getCharacterBySlug", "Get a character by slug"),
		endpoint("GET", "/characters/:id", session, "getCharacter", "Get a character with its sheets"),
		endpoint("PUT", "/characters/:id", session, "updateCharacter", "Update a character"),
		endpoint("DELETE", "/characters/:id", session, "deleteCharacter", "Delete a character"),
		endpoint("POST", "/characters/:id/describe", session, "describeCharacter", "Generate a character description with OpenAI"),
		endpoint("GET", "/characters/:id/sheets", session, "listSheets", "List a character's sheets"),
		endpoint("POST", "/characters/:id/sheets", session, "createSheet", "Create a sheet linked to a WorldAnvil block"),
		endpoint("GET", "/characters/:id/sheets/:sheetId", session, "getSheet", "Get a sheet"),
		endpoint("PUT", "/characters/:id/sheets/:sheetId", session, "updateSheet", "Update a sheet"),
		endpoint("DELETE", "/characters/:id/sheets/:sheetId", session, "deleteSheet", "Delete a sheet"),

		// Catalogue and WorldAnvil browsing
		endpoint("GET", "/rpg-systems", session, "listRpgSystems", "List RPG systems"),
		endpoint("GET", "/worldanvil/worlds", session, "listWorlds", "List the user's WorldAnvil worlds"),
		endpoint("GET", "/worldanvil/worlds/:worldId/blockfolders", session, "listBlockFolders", "List a world's block folders"),
		endpoint("GET", "/worldanvil/blocks/:blockId", session, "getBlock", "Get a WorldAnvil block"),

		// Administration
		endpoint("GET", "/admin/users", admin, "adminListUsers", "List users"),
		endpoint("POST", "/admin/users", admin, "adminCreateUser", "Create a user"),
		endpoint("GET", "/admin/users/:id", admin, "adminGetUser", "Get a user"),
		endpoint("PUT", "/admin/users/:id", admin, "adminUpdateUser", "Update a user"),
		endpoint("DELETE", "/admin/users/:id", admin, "adminDeleteUser", "Delete a user"),
		endpoint("GET", "/admin/rpg-systems", admin, "adminListRpgSystems", "List RPG systems"),
		endpoint("POST", "/admin/rpg-systems", admin, "adminCreateRpgSystem", "Create an RPG system"),
		endpoint("PUT", "/admin/rpg-systems/:id", admin, "adminUpdateRpgSystem", "Update an RPG system"),
		endpoint("DELETE", "/admin/rpg-systems/:id", admin, "adminDeleteRpgSystem", "Delete an RPG system"),
		endpoint("GET", "/admin/discord/roles", admin, "adminDiscordRoles", "List the guild's Discord roles"),
		endpoint("GET", "/admin/discord/channels", admin, "adminDiscordChannels", "List the guild's Discord channels by kind"),
	}
}

// EndpointRegistry holds the routes an adapter binds, rejecting duplicate
// METHOD:PATH combinations. Endpoints keep their registration order so
// adapters that match routes in order behave the same on every start.
type EndpointRegistry struct {
	endpoints map[string]*core.Endpoint
	order     []string
}

// NewEndpointRegistry creates a registry with the base endpoints registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{endpoints: make(map[string]*core.Endpoint)}

	base := BaseEndpoints()
	for i := range base {
		// base endpoints are unique
		_ = reg.register(&base[i])
	}
	return reg
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	key := endpointKey(ep)
	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	r.order = append(r.order, key)
	return nil
}

// RegisterPlugin registers additional endpoints. If any of them conflicts
// with a registered endpoint or with another in the batch, none are registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool, len(endpoints))
	for i := range endpoints {
		key := endpointKey(&endpoints[i])
		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", endpoints[i].Method, endpoints[i].Path)
		}
		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", endpoints[i].Method, endpoints[i].Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		_ = r.register(&ep)
	}
	return nil
}

// Endpoints returns every registered endpoint in registration order
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, r.endpoints[key])
	}
	return result
}
