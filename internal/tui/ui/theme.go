package ui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	BorderColor      tcell.Color
	BorderFocusColor tcell.Color
	TableHeaderFg    tcell.Color
	TableHeaderBg    tcell.Color
	TableCursorFg    tcell.Color
	TableCursorBg    tcell.Color
	TabActiveFg      tcell.Color
	TabActiveBg      tcell.Color
	TabInactiveFg    tcell.Color
	TabInactiveBg    tcell.Color
	TitleColor       tcell.Color
	UnreadColor      tcell.Color
	PendingColor     tcell.Color
	FailedColor      tcell.Color
	OfflineBannerFg  tcell.Color
	OfflineBannerBg  tcell.Color
	FlashInfoColor   tcell.Color
	FlashWarnColor   tcell.Color
	FlashErrColor    tcell.Color
}

// DefaultTheme returns the default dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorCadetBlue,
		BorderColor:      tcell.ColorDodgerBlue,
		BorderFocusColor: tcell.ColorLightSkyBlue,
		TableHeaderFg:    tcell.ColorWhite,
		TableHeaderBg:    tcell.ColorBlack,
		TableCursorFg:    tcell.ColorBlack,
		TableCursorBg:    tcell.ColorAqua,
		TabActiveFg:      tcell.ColorBlack,
		TabActiveBg:      tcell.ColorOrange,
		TabInactiveFg:    tcell.ColorBlack,
		TabInactiveBg:    tcell.ColorAqua,
		TitleColor:       tcell.ColorFuchsia,
		UnreadColor:      tcell.ColorOrange,
		PendingColor:     tcell.ColorYellow,
		FailedColor:      tcell.ColorOrangeRed,
		OfflineBannerFg:  tcell.ColorBlack,
		OfflineBannerBg:  tcell.ColorOrange,
		FlashInfoColor:   tcell.ColorNavajoWhite,
		FlashWarnColor:   tcell.ColorOrange,
		FlashErrColor:    tcell.ColorOrangeRed,
	}
}
