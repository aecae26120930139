/*
Package actions holds helpers shared by the built-in action plugins.

Action configuration strings such as cache keys or endpoints may be Go
templates rendered against the fragment being processed:

	{{.id}} {{.type}} {{.body}} {{.path}}
	{{.payload.user.name}} {{.config.region}}
	{{.params.id}} {{.headers.Accept}}

Parameters and headers expose their first value, and render empty when
absent. Payload and configuration values that may be absent are read with
get, which walks nested maps and renders empty when a key is missing:

	{{get .payload "user" "name"}} {{get .config "region"}}
*/
package actions
