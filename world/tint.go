package world

import (
	"image/color"

	"github.com/andreiashu/geoworld/region"
)

// Palette is the set of fill colors picked from by Tint.
var Palette = []color.RGBA{
	{R: 0x8d, G: 0xd3, B: 0xc7, A: 0xff},
	{R: 0xff, G: 0xff, B: 0xb3, A: 0xff},
	{R: 0xbe, G: 0xba, B: 0xda, A: 0xff},
	{R: 0xfb, G: 0x80, B: 0x72, A: 0xff},
	{R: 0x80, G: 0xb1, B: 0xd3, A: 0xff},
	{R: 0xfd, G: 0xb4, B: 0x62, A: 0xff},
	{R: 0xb3, G: 0xde, B: 0x69, A: 0xff},
	{R: 0xfc, G: 0xcd, B: 0xe5, A: 0xff},
	{R: 0xbc, G: 0x80, B: 0xbd, A: 0xff},
	{R: 0xcc, G: 0xeb, B: 0xc5, A: 0xff},
}

// ColorFor picks a palette entry from the region hash, so colors are stable
// across bakes.
func ColorFor(h region.Hash) color.RGBA {
	return Palette[uint64(h)%uint64(len(Palette))]
}

// shade lightens or darkens c by up to 12% depending on h.
func shade(c color.RGBA, h region.Hash) color.RGBA {
	f := 0.88 + float64(uint64(h)>>8%25)/100
	scale := func(v uint8) uint8 {
		x := float64(v) * f
		if x > 255 {
			return 255
		}
		return uint8(x)
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: c.A}
}

// Tint colors every region. Continents and countries pick from Palette;
// provinces take a shade of their country's color so country borders stay
// readable.
func Tint(w World) World {
	out := World{Continents: make([]Continent, len(w.Continents))}
	for i, cont := range w.Continents {
		cont.Info.Color = ColorFor(cont.ID.Hash)
		countries := make([]Country, len(cont.Children))
		for j, co := range cont.Children {
			co.Info.Color = ColorFor(co.ID.Hash)
			provinces := make([]Province, len(co.Children))
			for k, p := range co.Children {
				p.Info.Color = shade(co.Info.Color, p.ID.Hash)
				provinces[k] = p
			}
			co.Children = provinces
			countries[j] = co
		}
		cont.Children = countries
		out.Continents[i] = cont
	}
	return out
}
