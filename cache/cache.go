// Package cache stores normalized fetch outcomes so repeated selections of
// the same text skip the network.
//
// Keys come from wordpop.CacheKey (source + hash of the normalized text);
// values are opaque strings owned by the translator.
package cache

import "github.com/ZaguanLabs/wordpop"

// TranslationCache is an alias to the main package interface for convenience.
type TranslationCache = wordpop.TranslationCache
