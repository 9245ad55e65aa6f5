package pngstream

// Filter types, as numbered in section 9 of the PNG standard.
const (
	ftNone = iota
	ftSub
	ftUp
	ftAverage
	ftPaeth
	nFilter
)

func abs8(d uint8) int {
	if d < 128 {
		return int(d)
	}
	return 256 - int(d)
}

// paeth implements the Paeth predictor function.
func paeth(a, b, c uint8) uint8 {
	pc := int(c)
	pa := int(b) - pc
	pb := int(a) - pc
	pc = pa + pb
	if pa < 0 {
		pa = -pa
	}
	if pb < 0 {
		pb = -pb
	}
	if pc < 0 {
		pc = -pc
	}
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

// filter computes every filtered version of the row in cr[ftNone] against
// the previous row pr and returns the filter type with the smallest sum of
// absolute values, treating filtered bytes as signed. bpp is the number of
// bytes per complete pixel.
func filter(cr *[nFilter][]byte, pr []byte, bpp int) int {
	cdat0 := cr[ftNone][1:]
	cdat1 := cr[ftSub][1:]
	cdat2 := cr[ftUp][1:]
	cdat3 := cr[ftAverage][1:]
	cdat4 := cr[ftPaeth][1:]
	pdat := pr[1:]
	n := len(cdat0)

	sum := 0
	for i := range n {
		sum += abs8(cdat0[i])
	}
	best, filterType := sum, ftNone

	sum = 0
	for i := range n {
		cdat2[i] = cdat0[i] - pdat[i]
		sum += abs8(cdat2[i])
		if sum >= best {
			break
		}
	}
	if sum < best {
		best, filterType = sum, ftUp
	}

	sum = 0
	for i := range bpp {
		cdat1[i] = cdat0[i]
		sum += abs8(cdat1[i])
	}
	for i := bpp; i < n && sum < best; i++ {
		cdat1[i] = cdat0[i] - cdat0[i-bpp]
		sum += abs8(cdat1[i])
	}
	if sum < best {
		best, filterType = sum, ftSub
	}

	sum = 0
	for i := range bpp {
		cdat3[i] = cdat0[i] - pdat[i]/2
		sum += abs8(cdat3[i])
	}
	for i := bpp; i < n && sum < best; i++ {
		cdat3[i] = cdat0[i] - uint8((int(cdat0[i-bpp])+int(pdat[i]))/2)
		sum += abs8(cdat3[i])
	}
	if sum < best {
		best, filterType = sum, ftAverage
	}

	sum = 0
	for i := range bpp {
		cdat4[i] = cdat0[i] - pdat[i]
		sum += abs8(cdat4[i])
	}
	for i := bpp; i < n && sum < best; i++ {
		cdat4[i] = cdat0[i] - paeth(cdat0[i-bpp], pdat[i], pdat[i-bpp])
		sum += abs8(cdat4[i])
	}
	if sum < best {
		filterType = ftPaeth
	}
	return filterType
}
