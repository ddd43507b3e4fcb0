// Package schema defines the connector data model: connectors, operations,
// parameters, the recursive schema sum, pagination descriptors,
// authentication variants, and credentials. These are plain data types;
// the only behavior beyond storage is the overrides merge implemented in
// package loader.
package schema

import "fmt"

// ManifestKind discriminates the manifest variant a Connector holds.
// Exactly one of the pointer fields on Manifest is populated for the
// matching Kind: a tagged sum, not a class hierarchy.
type ManifestKind string

const (
	ManifestHTTP           ManifestKind = "http"
	ManifestAction         ManifestKind = "action"
	ManifestWrapper        ManifestKind = "wrapper"
	ManifestSimpleCode     ManifestKind = "simple_code"
	ManifestScriptedAction ManifestKind = "scripted_action"
)

// Manifest is the variant-tagged top-level connector description.
type Manifest struct {
	Kind ManifestKind `json:"kind" validate:"required,oneof=http action wrapper simple_code scripted_action"`

	HTTP           *HTTPManifest           `json:"http,omitempty"`
	Action         *ActionManifest         `json:"action,omitempty"`
	Wrapper        *WrapperManifest        `json:"wrapper,omitempty"`
	SimpleCode     *SimpleCodeManifest     `json:"simpleCode,omitempty"`
	ScriptedAction *ScriptedActionManifest `json:"scriptedAction,omitempty"`
}

// Validate checks that exactly one variant matching Kind is populated.
func (m *Manifest) Validate() error {
	populated := 0
	for _, p := range []bool{
		m.HTTP != nil, m.Action != nil, m.Wrapper != nil,
		m.SimpleCode != nil, m.ScriptedAction != nil,
	} {
		if p {
			populated++
		}
	}
	if populated != 1 {
		return fmt.Errorf("schema: manifest must populate exactly one variant, got %d", populated)
	}
	switch m.Kind {
	case ManifestHTTP:
		if m.HTTP == nil {
			return fmt.Errorf("schema: kind %q declared but HTTP variant absent", m.Kind)
		}
	case ManifestAction:
		if m.Action == nil {
			return fmt.Errorf("schema: kind %q declared but Action variant absent", m.Kind)
		}
	case ManifestWrapper:
		if m.Wrapper == nil {
			return fmt.Errorf("schema: kind %q declared but Wrapper variant absent", m.Kind)
		}
	case ManifestSimpleCode:
		if m.SimpleCode == nil {
			return fmt.Errorf("schema: kind %q declared but SimpleCode variant absent", m.Kind)
		}
	case ManifestScriptedAction:
		if m.ScriptedAction == nil {
			return fmt.Errorf("schema: kind %q declared but ScriptedAction variant absent", m.Kind)
		}
	default:
		return fmt.Errorf("schema: unknown manifest kind %q", m.Kind)
	}
	return nil
}

// Language tags an Action/SimpleCode operation's source.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "js"
)

// HTTPManifest carries the auth binding metadata for an OpenAPI-described
// connector; the CommonAPI view (operations, base path, schema dictionary)
// is attached on Connector, not here: every HTTP connector aggregates a
// common-api view used uniformly by the HTTP runner.
type HTTPManifest struct {
	// Source is the relative path to the OpenAPI document (e.g.
	// "swagger.yaml"), resolved by package loader via the Fetcher.
	Source string      `json:"source" validate:"required"`
	Auth   *AuthConfig `json:"auth,omitempty"`
}

// AuthConfig describes how a connector authenticates, independent of the
// credential values themselves (which live in Credentials).
type AuthConfig struct {
	Type AuthType `json:"type" validate:"required,oneof=header query path basic oauth multi_header"`

	// HeaderName/QueryName/PathName name the parameter the bound value is
	// written into, for Header/Query/Path auth types.
	HeaderName string `json:"headerName,omitempty"`
	QueryName  string `json:"queryName,omitempty"`
	PathName   string `json:"pathName,omitempty"`

	// OAuth carries the OAuth-specific binding metadata (token type,
	// header name, flow URIs). Populated only when Type == AuthTypeOAuth.
	OAuth *OAuthConfig `json:"oauthConfig,omitempty"`

	// MultiHeaderNames lists the header names a MultiHeader credential
	// must supply values for.
	MultiHeaderNames []string `json:"multiHeaderNames,omitempty"`
}

// AuthType enumerates the authentication binding strategies a manifest can
// declare. It is distinct from Authentication (the credential value sum).
type AuthType string

const (
	AuthTypeHeader      AuthType = "header"
	AuthTypeQuery       AuthType = "query"
	AuthTypePath        AuthType = "path"
	AuthTypeBasic       AuthType = "basic"
	AuthTypeOAuth       AuthType = "oauth"
	AuthTypeMultiHeader AuthType = "multi_header"
)

// OAuthConfig is the manifest-level (non-secret) OAuth metadata.
type OAuthConfig struct {
	Name                  string `json:"name,omitempty"`
	AuthURI               string `json:"authUri,omitempty"`
	AccessTokenURI        string `json:"accessTokenUri,omitempty"`
	ResponseType          string `json:"responseType,omitempty"`
	Prompt                string `json:"prompt,omitempty"`
	OAuthDocumentation    string `json:"oauthDocumentation,omitempty"`
	AccessTokenMethod     string `json:"accessTokenMethod,omitempty"`
	Scope                 string `json:"scope,omitempty"`
	AccessTokenPath       string `json:"accessTokenPath,omitempty"`
	EnableGroupCredential bool   `json:"enableGroupCredentials,omitempty"`
	Audience              string `json:"audience,omitempty"`
	// HeaderName is where the bound Authorization-style header is written.
	HeaderName string `json:"headerName,omitempty"`
	// TokenType prefixes the access token, e.g. "Bearer".
	TokenType string `json:"tokenType,omitempty"`
}

// ActionManifest is a collection of code operations, each with a language
// and a relative source file path under Source.
type ActionManifest struct {
	// Source is the directory name (relative to the connector root)
	// containing the operations' source files.
	Source     string               `json:"source" validate:"required"`
	Operations map[string]*CodeOp   `json:"operations" validate:"required,min=1"`
}

// CodeOp names one Action operation's language and source file.
type CodeOp struct {
	Language Language `json:"language" validate:"required,oneof=python js"`
	File     string   `json:"file" validate:"required"`
}

// WrapperManifest adapts inputs/outputs around another referenced
// operation.
type WrapperManifest struct {
	ConnectorID       string           `json:"connectorId" validate:"required"`
	ConnectorOperation string          `json:"connectorOperation" validate:"required"`
	Inputs            []*InputMapping  `json:"inputs,omitempty"`
	OutputSelectors   []*OutputSelector `json:"outputSelectors,omitempty"`
}

// InputMapping moves a source parameter into a dotted path of the wrapped
// operation's input object.
type InputMapping struct {
	SourceName  string `json:"sourceName" validate:"required"`
	APIParamName string `json:"apiParamName" validate:"required"`
}

// OutputSelector projects a field of the wrapped call's result via a
// jmespath-style expression.
type OutputSelector struct {
	Name             string `json:"name" validate:"required"`
	JMESPathSelector string `json:"jmesPathSelector" validate:"required"`
}

// SimpleCodeManifest is a single language+source operation (no Action-style
// collection).
type SimpleCodeManifest struct {
	Language Language `json:"language" validate:"required,oneof=python js"`
	Source   string   `json:"source" validate:"required"`
}

// ScriptedActionManifest is recognized but not executable: dispatching a
// scripted-action connector fails Unimplemented unless a script runner is
// registered.
type ScriptedActionManifest struct {
	Source string `json:"source,omitempty"`
}

// Connector is the top-level named unit loaded from disk.
type Connector struct {
	Name     string    `json:"name" validate:"required"`
	Manifest *Manifest `json:"manifest" validate:"required"`

	// CommonAPI is the normalized HTTP view used uniformly by the HTTP
	// runner; populated only for HTTP manifests.
	CommonAPI *CommonAPI `json:"commonApi,omitempty"`

	// Sources holds inline (relative-path → content) for code operations,
	// populated at load time for Action/SimpleCode/ScriptedAction
	// manifests. It is part of the JSON shape so a connector survives a
	// serialize/deserialize round trip (the redis cache) intact.
	Sources map[string]string `json:"sources,omitempty"`
}

// Validate checks the connector invariants: a manifest with exactly one
// populated variant, no HTTP operation with method None, and no nextUrl
// pagination (recognized by the decoder, rejected here).
func (c *Connector) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("schema: connector name is required")
	}
	if c.Manifest == nil {
		return fmt.Errorf("schema: connector %q has no manifest", c.Name)
	}
	if err := c.Manifest.Validate(); err != nil {
		return fmt.Errorf("schema: connector %q: %w", c.Name, err)
	}
	if c.Manifest.Kind == ManifestHTTP {
		if c.CommonAPI == nil {
			return fmt.Errorf("schema: connector %q is HTTP but has no common API view", c.Name)
		}
		for name, op := range c.CommonAPI.Operations {
			if op.Method == HTTPMethodNone {
				return fmt.Errorf("schema: connector %q operation %q has method None", c.Name, name)
			}
			if op.Pagination.Kind == PaginationKindNextURL {
				return fmt.Errorf("schema: connector %q operation %q: pagination kind %q is not implemented and is rejected at load time", c.Name, name, PaginationKindNextURL)
			}
		}
	}
	return nil
}

// CommonAPI is the normalized view of an HTTP connector: its operations,
// shared schema dictionary, and base path.
type CommonAPI struct {
	BasePath   string                `json:"basePath"`
	Operations map[string]*Operation `json:"operations"`
	// SchemaDict maps $ref keys (e.g. "#/components/schemas/Foo") to the
	// schema they resolved to. Cycle endpoints stay behind their Ref key.
	SchemaDict map[string]*Schema `json:"schemaDict"`
}

// HTTPMethod enumerates the supported verbs; None is a load-time error for
// HTTP operations.
type HTTPMethod string

const (
	HTTPMethodNone   HTTPMethod = ""
	HTTPMethodGet    HTTPMethod = "GET"
	HTTPMethodPost   HTTPMethod = "POST"
	HTTPMethodPut    HTTPMethod = "PUT"
	HTTPMethodPatch  HTTPMethod = "PATCH"
	HTTPMethodDelete HTTPMethod = "DELETE"
	HTTPMethodHead   HTTPMethod = "HEAD"
)

// Operation is an addressable unit within a connector (connector.operation).
// For HTTP manifests, the HTTP-specific fields below are populated; for
// Action/SimpleCode, Language/Source carry the code to run; Wrapper
// operations live entirely on WrapperManifest instead (a wrapper connector
// has exactly one implicit operation).
type Operation struct {
	Name   string     `json:"name"`
	Method HTTPMethod `json:"method,omitempty"`

	// PathTemplate is the operation's path, relative to CommonAPI.BasePath,
	// e.g. "/users/{id}".
	PathTemplate string `json:"path,omitempty"`

	Parameters []*Parameter `json:"parameters,omitempty"`

	// RequestBody maps content-type to its schema, when the operation
	// declares one.
	RequestBody map[string]*Schema `json:"requestBody,omitempty"`

	// Responses maps status-code pattern ("200", "2xx", "*") to schema.
	Responses map[string]*Schema `json:"responses,omitempty"`

	Pagination Pagination `json:"pagination,omitempty"`
}

// ParameterLocation is where a parameter is carried on the wire.
type ParameterLocation string

const (
	ParamLocationQuery  ParameterLocation = "query"
	ParamLocationPath   ParameterLocation = "path"
	ParamLocationHeader ParameterLocation = "header"
	// ParamLocationCookie is recognized but rejected at dispatch
	// (the HTTP runner fails any operation declaring one).
	ParamLocationCookie ParameterLocation = "cookie"
)

// Parameter describes one named input to an HTTP operation.
type Parameter struct {
	Name     string            `json:"name" validate:"required"`
	In       ParameterLocation `json:"in" validate:"required,oneof=query path header cookie"`
	Required bool              `json:"required"`
	Schema   *Schema           `json:"schema,omitempty"`
}

// SchemaKind discriminates the Schema sum type.
type SchemaKind string

const (
	SchemaKindRef     SchemaKind = "ref"
	SchemaKindObject  SchemaKind = "object"
	SchemaKindArray   SchemaKind = "array"
	SchemaKindString  SchemaKind = "string"
	SchemaKindNumber  SchemaKind = "number"
	SchemaKindInteger SchemaKind = "integer"
	SchemaKindBoolean SchemaKind = "boolean"
	SchemaKindAllOf   SchemaKind = "all_of"
	SchemaKindOneOf   SchemaKind = "one_of"
	SchemaKindAnyOf   SchemaKind = "any_of"
	SchemaKindNone    SchemaKind = "none"
)

// Schema is the recursive schema sum:
//
//	Ref(key) | Object{properties,required} | Array{items} | String | Number
//	| Integer | Boolean | AllOf(list) | OneOf(list) | AnyOf(list) | None
type Schema struct {
	Kind SchemaKind `json:"kind"`

	// Ref holds the $ref key when Kind == SchemaKindRef.
	Ref string `json:"ref,omitempty"`

	// Object fields.
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`

	// Array field.
	Items *Schema `json:"items,omitempty"`

	// Composite fields (AllOf/OneOf/AnyOf).
	Of []*Schema `json:"of,omitempty"`
}

// Pagination selects one strategy per operation. Exactly one concrete
// field is non-nil, selected by Kind; PaginationKindUnpaginated uses only
// ResultsPath.
type PaginationKind string

const (
	PaginationKindPageOffset   PaginationKind = "page_offset"
	PaginationKindOffset       PaginationKind = "offset"
	PaginationKindNextURL      PaginationKind = "next_url"
	PaginationKindMultiCursor  PaginationKind = "multi_cursor"
	PaginationKindUnpaginated  PaginationKind = "unpaginated"
)

type Pagination struct {
	Kind PaginationKind `json:"kind,omitempty"`

	PageOffset  *PageOffsetPagination  `json:"pageOffset,omitempty"`
	Offset      *OffsetPagination      `json:"offset,omitempty"`
	NextURL     *NextURLPagination     `json:"nextUrl,omitempty"`
	MultiCursor *MultiCursorPagination `json:"multiCursor,omitempty"`
	Unpaginated *UnpaginatedPagination `json:"unpaginated,omitempty"`
}

// IsZero reports whether no pagination strategy was decoded, which the
// loader treats as Unpaginated with an empty ResultsPath.
func (p Pagination) IsZero() bool {
	return p.Kind == ""
}

type PageOffsetPagination struct {
	PageParam   string `json:"pageParam" validate:"required"`
	StartPage   int    `json:"startPage"`
	LimitParam  string `json:"limitParam" validate:"required"`
	MaxLimit    int    `json:"maxLimit" validate:"required,gt=0"`
	ResultsPath string `json:"resultsPath"`
}

type OffsetPagination struct {
	OffsetParam string `json:"offsetParam" validate:"required"`
	LimitParam  string `json:"limitParam" validate:"required"`
	MaxLimit    int    `json:"maxLimit" validate:"required,gt=0"`
	ResultsPath string `json:"resultsPath"`
}

type NextURLPagination struct {
	// NextURLPath locates the next-page URL within the response body.
	// The decoder accepts this strategy but Connector.Validate rejects it:
	// the HTTP runner does not follow next-page URLs.
	NextURLPath string `json:"nextUrlPath" validate:"required"`
	LimitParam  string `json:"limitParam,omitempty"`
	MaxLimit    int    `json:"maxLimit,omitempty"`
	ResultsPath string `json:"resultsPath"`
}

type MultiCursorPagination struct {
	CursorsPath  []string `json:"cursorsPath" validate:"required,min=1"`
	CursorsParam []string `json:"cursorsParam" validate:"required,min=1"`
	LimitParam   string   `json:"limitParam" validate:"required"`
	MaxLimit     int      `json:"maxLimit" validate:"required,gt=0"`
	ResultsPath  string   `json:"resultsPath"`
}

type UnpaginatedPagination struct {
	ResultsPath string `json:"resultsPath"`
}

// Authentication is the credential value sum. Kind selects
// exactly one field.
type AuthenticationKind string

const (
	AuthenticationHeader      AuthenticationKind = "header"
	AuthenticationQuery       AuthenticationKind = "query"
	AuthenticationPath        AuthenticationKind = "path"
	AuthenticationBasic       AuthenticationKind = "basic"
	AuthenticationOAuth       AuthenticationKind = "oauth"
	AuthenticationMultiHeader AuthenticationKind = "multi_header"
)

type Authentication struct {
	Kind AuthenticationKind `json:"kind" validate:"required,oneof=header query path basic oauth multi_header"`

	Header      *ValueCredential      `json:"header,omitempty"`
	Query       *ValueCredential      `json:"query,omitempty"`
	Path        *ValueCredential      `json:"path,omitempty"`
	Basic       *BasicCredential      `json:"basic,omitempty"`
	OAuth       *OAuthCredential      `json:"oauth,omitempty"`
	MultiHeader *MultiHeaderCredential `json:"multiHeader,omitempty"`
}

type ValueCredential struct {
	Value string `json:"value"`
}

type BasicCredential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OAuthCredential struct {
	// AccessToken may be empty; using it when empty is a load-bearing
	// error at dispatch time: OAuth auth with no access token fails the
	// call.
	AccessToken string `json:"accessToken,omitempty"`
	// RefreshToken and ExpiryUnix back the golang.org/x/oauth2 token
	// handling in package httprunner.
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiryUnix   int64  `json:"expiryUnix,omitempty"`
}

type MultiHeaderCredential struct {
	Values map[string]string `json:"values"`
}
