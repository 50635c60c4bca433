package botbuilder

// Version is the release of the module. Release builds override it with
// -ldflags "-X github.com/edboykin-insight/botbuilder-dotnet.Version=...".
var Version = "0.1.0-dev"
