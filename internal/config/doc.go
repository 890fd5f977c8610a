// Package config loads postsync settings.
//
// Sources, lowest precedence first:
//
//  1. Built-in defaults.
//  2. A YAML file (postsync.yaml), decoded strictly: unknown keys are errors.
//  3. A .env file read with godotenv.
//  4. The process environment.
//
// Only BASE_URL, FIREBASE_API_KEY and POSTSYNC_DB are read from the
// environment layers. The merged result is checked against an embedded CUE
// schema before it is returned.
package config
