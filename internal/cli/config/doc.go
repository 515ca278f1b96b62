// Package config loads runtime configuration for the MediaVault
// uploader CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// The JSON loader uses timex.Duration for intervals, so values can be
// either strings like "3s" or integer nanoseconds:
//
//	{
//	  "sign_url_endpoint": "https://cms.example.com/api/sign-s3",
//	  "delete_endpoint": "https://cms.example.com/api/delete-s3",
//	  "bucket_key": "media",
//	  "bucket_region": "eu-central-1",
//	  "request_timeout": "5m",
//	  "retry_base_delay": "1s"
//	}
//
// The bucket secret is deliberately not a flag; it comes from the JSON
// file, the MEDIAVAULT_SECRET environment variable, or an interactive
// prompt.
package config
