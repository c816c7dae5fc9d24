package theme

import "image/color"

func rgb(hex uint32) color.NRGBA {
	return color.NRGBA{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 0xff}
}

// rgba takes the alpha as a fraction like a CSS rgba() value.
func rgba(r, g, b uint8, a float64) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: uint8(a*255 + 0.5)}
}

var batchPalette = [12]color.NRGBA{
	rgb(0x5CADFF), rgb(0xFF9900), rgb(0x0066FF), rgb(0x05FFFF),
	rgb(0x66CCFF), rgb(0x57EBFF), rgb(0xFF0000), rgb(0xE44C16),
	rgb(0xFD0F0F), rgb(0xA90701), rgb(0x28460A), rgb(0x000000),
}

var accentPalette = [5]color.NRGBA{
	rgb(0x385D8A), rgb(0xC30308), rgb(0xDECA36), rgb(0x020205), rgb(0x779E38),
}

var teamPalette = [4]color.NRGBA{
	rgb(0x0066FF), rgb(0x00CC00), rgb(0xFF0000), rgb(0xFFFD00),
}

// Day is the light wallboard theme.
func Day() Theme {
	t := Theme{Name: "day", ShiftAlpha: 0.7, Batch: batchPalette, Accents: accentPalette, Teams: teamPalette}
	t.Colors = [numRoles]color.NRGBA{
		RowEven:       rgb(0xEBF4FB),
		RowOdd:        rgb(0xFFFFFF),
		Separator:     rgb(0xF1F5F9),
		Weekend:       rgba(255, 220, 220, 0.25),
		Holiday:       rgba(255, 180, 180, 0.30),
		Today:         rgba(255, 255, 200, 0.20),
		Grid:          rgba(185, 200, 215, 0.50),
		NowLine:       rgba(160, 0, 0, 0.65),
		BarPast:       rgb(0xE2E2E2),
		BarFuture:     rgb(0xEFEFEF),
		BarOutline:    rgba(0, 0, 0, 0.12),
		LabelBG:       rgb(0xEAEAEA),
		LabelBorder:   rgb(0xD0D0D0),
		LabelText:     rgb(0x0088BB),
		HourText:      rgb(0x64748B),
		EquipmentText: rgb(0x1A365D),
		DateText:      rgb(0x334155),
		DateWeekend:   rgb(0xDC2626),
		HeaderBG:      rgb(0xFFFFFF),
		Background:    rgb(0xFFFFFF),
	}
	return t
}

// Night is the dark high-contrast theme for night shifts. The near-black
// accent is lifted so it stays visible on dark bars.
func Night() Theme {
	t := Theme{Name: "night", ShiftAlpha: 0.85, Batch: batchPalette, Accents: accentPalette, Teams: teamPalette}
	t.Accents[3] = rgb(0xE5E7EB)
	t.Colors = [numRoles]color.NRGBA{
		RowEven:       rgb(0x111827),
		RowOdd:        rgb(0x0B1120),
		Separator:     rgb(0x1F2937),
		Weekend:       rgba(255, 120, 120, 0.10),
		Holiday:       rgba(255, 90, 90, 0.16),
		Today:         rgba(255, 255, 160, 0.10),
		Grid:          rgba(100, 116, 139, 0.45),
		NowLine:       rgba(255, 80, 80, 0.90),
		BarPast:       rgb(0x374151),
		BarFuture:     rgb(0x1F2937),
		BarOutline:    rgba(255, 255, 255, 0.18),
		LabelBG:       rgb(0x111827),
		LabelBorder:   rgb(0x4B5563),
		LabelText:     rgb(0x38BDF8),
		HourText:      rgb(0x94A3B8),
		EquipmentText: rgb(0xE2E8F0),
		DateText:      rgb(0xCBD5E1),
		DateWeekend:   rgb(0xF87171),
		HeaderBG:      rgb(0x030712),
		Background:    rgb(0x030712),
	}
	return t
}
