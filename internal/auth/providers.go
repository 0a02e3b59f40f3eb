package auth

// SocialProvider is an OAuth provider credential pair handed to the sign-in
// page. Carried as configuration only.
type SocialProvider struct {
	Name         string
	ClientID     string
	ClientSecret string
}

// Providers returns the configured social providers. A provider is included
// only when both its id and secret are set; partial credentials are never
// defaulted.
func Providers(googleID, googleSecret, githubID, githubSecret string) []SocialProvider {
	var providers []SocialProvider
	if googleID != "" && googleSecret != "" {
		providers = append(providers, SocialProvider{
			Name:         "google",
			ClientID:     googleID,
			ClientSecret: googleSecret,
		})
	}
	if githubID != "" && githubSecret != "" {
		providers = append(providers, SocialProvider{
			Name:         "github",
			ClientID:     githubID,
			ClientSecret: githubSecret,
		})
	}
	return providers
}
