package domain

// Platform ids shared by the wizard, the intake forms and the admin views.
const (
	PlatformTikTok      = "tiktok"
	PlatformInstagram   = "instagram"
	PlatformYouTube     = "youtube"
	PlatformFacebook    = "facebook"
	PlatformTwitter     = "twitter"
	PlatformSnapchat    = "snapchat"
	PlatformPinterest   = "pinterest"
	PlatformLinkedIn    = "linkedin"
	PlatformTwitch      = "twitch"
	PlatformPodcast     = "podcast"
	PlatformGoogleDrive = "googledrive"
	PlatformDropbox     = "dropbox"
	PlatformX           = "x"
)

// DefaultConnectedPlatforms are the accounts offered on the connect step.
var DefaultConnectedPlatforms = []string{
	PlatformInstagram,
	PlatformTikTok,
	PlatformFacebook,
	PlatformYouTube,
	PlatformTwitter,
}

var sourcePlatforms = map[string]bool{
	PlatformTikTok:      true,
	PlatformInstagram:   true,
	PlatformYouTube:     true,
	PlatformFacebook:    true,
	PlatformTwitch:      true,
	PlatformSnapchat:    true,
	PlatformPodcast:     true,
	PlatformGoogleDrive: true,
	PlatformDropbox:     true,
}

var destinationPlatforms = map[string]bool{
	PlatformTikTok:    true,
	PlatformInstagram: true,
	PlatformYouTube:   true,
	PlatformFacebook:  true,
	PlatformTwitter:   true,
	PlatformSnapchat:  true,
	PlatformPinterest: true,
	PlatformLinkedIn:  true,
}

// IntakePlatforms are the platforms asked about on the detailed intake form.
var IntakePlatforms = []string{
	PlatformYouTube,
	PlatformTikTok,
	PlatformFacebook,
	PlatformInstagram,
	PlatformPinterest,
	PlatformLinkedIn,
	PlatformSnapchat,
}

func IsSourcePlatform(p string) bool {
	return sourcePlatforms[p]
}

func IsDestinationPlatform(p string) bool {
	return destinationPlatforms[p]
}

var platformDisplayNames = map[string]string{
	PlatformTikTok:      "TikTok",
	PlatformInstagram:   "Instagram",
	PlatformYouTube:     "YouTube",
	PlatformFacebook:    "Facebook",
	PlatformTwitter:     "X (Twitter)",
	PlatformSnapchat:    "Snapchat",
	PlatformPinterest:   "Pinterest",
	PlatformLinkedIn:    "LinkedIn",
	PlatformTwitch:      "Twitch",
	PlatformPodcast:     "Podcast (RSS)",
	PlatformGoogleDrive: "Google Drive",
	PlatformDropbox:     "Dropbox",
}

// PlatformDisplayName returns the admin-facing label, or the id itself.
func PlatformDisplayName(p string) string {
	if name, ok := platformDisplayNames[p]; ok {
		return name
	}
	return p
}

// Workflow emails name the short-form surface rather than the network.
var workflowPlatformNames = map[string]string{
	PlatformInstagram: "Instagram Reels",
	PlatformYouTube:   "YouTube / Shorts",
	PlatformFacebook:  "Facebook Reels",
}

func WorkflowPlatformName(p string) string {
	if name, ok := workflowPlatformNames[p]; ok {
		return name
	}
	return PlatformDisplayName(p)
}

// driveFolders maps relay platform ids to Drive folder names.
var driveFolders = map[string]string{
	PlatformTikTok:    "TikTok",
	PlatformInstagram: "Instagram",
	PlatformYouTube:   "YouTube",
	PlatformFacebook:  "Facebook",
	PlatformX:         "X",
}

// DriveFolderFor reports the folder a relay platform publishes into.
func DriveFolderFor(p string) (string, bool) {
	name, ok := driveFolders[p]
	return name, ok
}
