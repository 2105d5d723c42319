// Package config loads archivesearch settings.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file
// (./archivesearch.yaml or ~/.config/archivesearch/archivesearch.yaml), and the
// environment. Dotenv files (.env, .env.local) are loaded into the environment
// first without overriding variables that are already set.
//
// Every key can be overridden with an ARCHIVESEARCH_ variable, dots replaced by
// underscores:
//
//	ARCHIVESEARCH_DATABASE_DRIVER=sqlite
//	ARCHIVESEARCH_SEARCH_RRF_K=30
//
// The archive's existing deployment variables are honoured as well:
// POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER, POSTGRES_PASSWORD,
// GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION, GOOGLE_APPLICATION_CREDENTIALS
// and OPENAI_API_KEY.
package config
