package callbacktypes

// Форматы callback data
const (
	Noop = "noop"

	SetRole = "set_role:" // set_role:student

	FindMatch    = "find_match"
	MyMatch      = "my_match"
	CancelSearch = "cancel_search"
	ConfirmMatch = "confirm_match:" // confirm_match:<match_id>
	CancelMatch  = "cancel_match:"  // cancel_match:<match_id>

	ExtensionAccept  = "ext_accept:"  // ext_accept:<extension_id>
	ExtensionDecline = "ext_decline:" // ext_decline:<extension_id>
)
