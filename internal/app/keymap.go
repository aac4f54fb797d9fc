package app

// Key binding constants used in handleKey.
const (
	KeyQuit      = "q"
	KeyQuitUpper = "Q"
	KeyCtrlC     = "ctrl+c"
	KeyEsc       = "esc"
	KeySpace     = " "
	KeyTab       = "tab"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyJ         = "j"
	KeyK         = "k"
	KeyEnter     = "enter"

	// Mode pages.
	KeySave       = "s"
	KeyClear      = "x"
	KeySpeak      = "p"
	KeyRateDown   = "r"
	KeyRateUp     = "R"
	KeyPitchDown  = "t"
	KeyPitchUp    = "T"
	KeyVolumeDown = "v"
	KeyVolumeUp   = "V"
	KeyDownload   = "d"

	// History page.
	KeyDelete      = "x"
	KeyDownloadAll = "D"
	KeyClearAll    = "C"
	KeyFilter      = "f"
	KeySavedOnly   = "S"
	KeyUnsaveAll   = "U"
	KeyConfirm     = "y"
	KeyCancel      = "n"

	// Home shortcuts.
	KeyLipReading = "1"
	KeyGestures   = "2"
	KeyHistory    = "3"
	KeyAbout      = "4"
)

// speechStep is the increment for rate, pitch and volume keys.
const speechStep = 0.1
