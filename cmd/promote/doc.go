// Command promote manages admin rights for catio.cam users.
//
// It supports the following operations:
//   - grant: Grant admin rights to a user by email
//   - revoke: Revoke admin rights from a user by email
//
// Usage:
//
//	promote <command> <email>
//
// Commands:
//
//	grant   Mark the user with the given email as an admin. The user
//	        must have signed in through the auth proxy at least once so
//	        a row exists for them.
//
//	revoke  Remove admin rights from the user with the given email.
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: /database)
//
// Notes:
//
// Accounts are created by the OAuth sign-in flow; this utility only
// flips the admin flag on existing accounts. Changes take effect on the
// user's next request since role checks read the database per request.
package main
