package engine

const (
	msgHelp = "Welcome to your HomeLab!\n\n" +
		"/list - List all registered hosts\n" +
		"/add <name> <ip> [mac] - Register a new host\n" +
		"/remove <name> - Remove a host\n" +
		"/wake <name> - Wake a host up\n"

	msgUnknown = "Unknown command, send /start for help."

	msgAddUsage    = "Invalid format. Usage: /add <name> <ip> [mac]"
	msgRemoveUsage = "Invalid format. Usage: /remove <name>"
	msgWakeUsage   = "Invalid format. Usage: /wake <name>"

	msgInvalidName = "Invalid host name."
	msgMACNotFound = "MAC address not supplied and not found on the LAN. Please specify the MAC."
	msgInvalidIP   = "Invalid IP address."
	msgInvalidMAC  = "Invalid MAC address."
	msgNameExists  = "A host with this name already exists."
	msgIPExists    = "A host with this IP already exists."
	msgMACExists   = "A host with this MAC already exists."
	msgListFull    = "Could not add the host. The list is full."
	msgAdded       = "Host added: %s (%s, %s)"
	msgRemoved     = "Host '%s' removed."
	msgNotFound    = "Host not found."
	msgNoHosts     = "No hosts registered."
	msgChecking    = "Checking hosts status, please wait..."
	msgListHeader  = "*Registered hosts:*\n"
	msgListLine    = "%s (%s) - %s\n"
	msgUp          = "✅"
	msgDown        = "❌"
	msgWoLSent     = "Wake-on-LAN packet sent to %s."
	msgWoLFailed   = "Failed to send Wake-on-LAN packet to %s: %v"
	msgSaveWarning = "\nWarning: the host list could not be saved: %v"
)
