package riotapi

import "strings"

// regionalHosts maps platform shards to the regional cluster serving account-v1.
var regionalHosts = map[string]string{
	"br1":  "americas",
	"la1":  "americas",
	"la2":  "americas",
	"na1":  "americas",
	"oc1":  "americas",
	"eun1": "europe",
	"euw1": "europe",
	"me1":  "europe",
	"ru":   "europe",
	"tr1":  "europe",
	"jp1":  "asia",
	"kr":   "asia",
	"ph2":  "asia",
	"sg2":  "asia",
	"th2":  "asia",
	"tw2":  "asia",
	"vn2":  "asia",
}

// RegionalCluster returns the routing value for a platform shard. Unknown shards route to americas.
func RegionalCluster(platform string) string {
	if r, ok := regionalHosts[strings.ToLower(platform)]; ok {
		return r
	}
	return "americas"
}

// KnownPlatform reports whether platform is a shard the client can route.
func KnownPlatform(platform string) bool {
	_, ok := regionalHosts[strings.ToLower(platform)]
	return ok
}
