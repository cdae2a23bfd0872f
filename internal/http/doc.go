// Package httpapp provides the HTTP server for Fritter.
//
// Every route is a handler behind a gate: an ordered list of checks that
// resolve the session, load the freet or record named in the path, decode
// and validate the body, and compare ownership. The first failing check
// writes the response.
//
//	@title						Fritter API
//	@version					1.0
//	@description				Short posts ("freets") with comments and reactions.
//	@description
//	@description				## Sessions
//	@description				Create an account, then sign in to receive a session cookie and token:
//	@description				```bash
//	@description				curl -X POST /api/users -d '{"username":"alice","password":"pw"}'
//	@description				curl -X POST /api/users/session -d '{"username":"alice","password":"pw"}'
//	@description				# Returns: {"message": "...", "user": {...}, "token": "TOKEN"}
//	@description				```
//	@description				Send the cookie back, or use `Authorization: Bearer TOKEN`.
//	@description				Write routes answer 403 when no session is present.
//
//	@contact.name				Fritter
//	@license.name				MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	SessionCookie
//	@in							cookie
//	@name						fritter_session
//	@description				Session cookie set by POST /api/users/session
//
//	@tag.name					Freets
//	@tag.description			Short posts of at most 140 characters.
//
//	@tag.name					Comments
//	@tag.description			Free text attached to a freet. Any user may comment any number of times.
//
//	@tag.name					Reactions
//	@tag.description			One emotion per user per freet, changeable in place.
//
//	@tag.name					Users
//	@tag.description			Accounts and sessions.
//
//	@tag.name					Follows
//	@tag.description			Follow relationships between users.
package httpapp
