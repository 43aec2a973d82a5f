package raster

// frame is the common intermediate every conversion passes through:
// a luma plane plus, for colour sources, interleaved 8-bit RGB.
type frame struct {
	w, h int
	y    []byte
	rgb  []byte // nil for gray sources
}

// Convert returns a new image holding img's samples in the target format.
// Dimensions are rounded up when the target has block-size constraints; the added
// rows and columns replicate the last row and column. The source is never modified.
func Convert(img *Image, target Format) (*Image, error) {
	if img == nil {
		return nil, &FormatError{Op: "convert", To: target, Err: ErrBufferSize}
	}
	w, h := img.Width, img.Height
	if target.Known() {
		w, h = alignUp(target, w, h)
	}
	return convertResize(img, target, w, h, "convert")
}

// ConvertResize converts img to target and crops or pads it to width x height.
// Padding replicates the last row and column; cropping keeps the top-left region.
// No scaling is performed.
func ConvertResize(img *Image, target Format, width, height int) (*Image, error) {
	if img == nil {
		return nil, &FormatError{Op: "convert_resize", To: target, Err: ErrBufferSize}
	}
	if target.Known() {
		width, height = alignUp(target, width, height)
	}
	return convertResize(img, target, width, height, "convert_resize")
}

func convertResize(img *Image, target Format, width, height int, op string) (*Image, error) {
	if !img.Format.Known() || !target.Known() {
		return nil, &FormatError{Op: op, From: img.Format, To: target, Err: ErrUnsupportedFormat}
	}
	size, err := FrameSize(target, width, height)
	if err != nil {
		return nil, &FormatError{Op: op, From: img.Format, To: target, Err: err}
	}
	out, err := allocate(size)
	if err != nil {
		return nil, &FormatError{Op: op, From: img.Format, To: target, Err: err}
	}

	src := formats[img.Format]
	dst := formats[target]
	if width == img.Width && height == img.Height &&
		(img.Format == target || src.layout == layoutGray && dst.layout == layoutGray) {
		copy(out, img.data)
		res := wrap(width, height, target, out)
		res.Sequence = img.Sequence
		return res, nil
	}

	fr := decode(img).resize(width, height)
	encode(fr, dst, out)
	res := wrap(width, height, target, out)
	res.Sequence = img.Sequence
	return res, nil
}

func decode(img *Image) frame {
	info := formats[img.Format]
	w, h := img.Width, img.Height
	n := w * h
	fr := frame{w: w, h: h}
	switch info.layout {
	case layoutGray:
		fr.y = img.data[:n]
	case layoutRGB:
		fr.y = make([]byte, n)
		fr.rgb = make([]byte, 3*n)
		for i := range n {
			p := img.data[i*info.bpp:]
			r, g, b := p[info.r], p[info.g], p[info.b]
			fr.rgb[3*i], fr.rgb[3*i+1], fr.rgb[3*i+2] = r, g, b
			fr.y[i] = luma(r, g, b)
		}
	case layoutPlanar420:
		fr.y = img.data[:n]
		fr.rgb = make([]byte, 3*n)
		cw := w / 2
		uPlane := img.data[n : n+n/4]
		vPlane := img.data[n+n/4 : n+n/2]
		if info.swapUV {
			uPlane, vPlane = vPlane, uPlane
		}
		for y := range h {
			for x := range w {
				c := (y/2)*cw + x/2
				i := y*w + x
				fr.rgb[3*i], fr.rgb[3*i+1], fr.rgb[3*i+2] = yuvToRGB(fr.y[i], uPlane[c], vPlane[c])
			}
		}
	case layoutPacked422:
		fr.y = make([]byte, n)
		fr.rgb = make([]byte, 3*n)
		for i := 0; i < n; i += 2 {
			m := img.data[2*i : 2*i+4]
			u, v := m[info.u], m[info.v]
			fr.y[i] = m[info.y0]
			fr.y[i+1] = m[info.y0+2]
			for k := range 2 {
				j := i + k
				fr.rgb[3*j], fr.rgb[3*j+1], fr.rgb[3*j+2] = yuvToRGB(fr.y[j], u, v)
			}
		}
	}
	return fr
}

// resize crops or pads the frame by replicating its last row and column.
func (fr frame) resize(w, h int) frame {
	if w == fr.w && h == fr.h {
		return fr
	}
	out := frame{w: w, h: h, y: resizePlane(fr.y, fr.w, fr.h, w, h, 1)}
	if fr.rgb != nil {
		out.rgb = resizePlane(fr.rgb, fr.w, fr.h, w, h, 3)
	}
	return out
}

func resizePlane(src []byte, sw, sh, dw, dh, bpp int) []byte {
	dst := make([]byte, dw*dh*bpp)
	rowLen := min(sw, dw) * bpp
	for y := range dh {
		sy := min(y, sh-1)
		srow := src[sy*sw*bpp : (sy+1)*sw*bpp]
		drow := dst[y*dw*bpp : (y+1)*dw*bpp]
		copy(drow, srow[:rowLen])
		last := srow[(sw-1)*bpp : sw*bpp]
		for x := sw; x < dw; x++ {
			copy(drow[x*bpp:(x+1)*bpp], last)
		}
	}
	return dst
}

func encode(fr frame, info formatInfo, out []byte) {
	n := fr.w * fr.h
	switch info.layout {
	case layoutGray:
		copy(out, fr.y)
	case layoutRGB:
		for i := range n {
			p := out[i*info.bpp:]
			if fr.rgb != nil {
				p[info.r], p[info.g], p[info.b] = fr.rgb[3*i], fr.rgb[3*i+1], fr.rgb[3*i+2]
			} else {
				p[info.r], p[info.g], p[info.b] = fr.y[i], fr.y[i], fr.y[i]
			}
		}
	case layoutPlanar420:
		copy(out, fr.y)
		cw, ch := fr.w/2, fr.h/2
		uPlane := out[n : n+n/4]
		vPlane := out[n+n/4 : n+n/2]
		if info.swapUV {
			uPlane, vPlane = vPlane, uPlane
		}
		for cy := range ch {
			for cx := range cw {
				var su, sv int
				for _, d := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
					u, v := fr.chroma((2*cy+d[1])*fr.w + 2*cx + d[0])
					su += int(u)
					sv += int(v)
				}
				uPlane[cy*cw+cx] = byte((su + 2) / 4)
				vPlane[cy*cw+cx] = byte((sv + 2) / 4)
			}
		}
	case layoutPacked422:
		for i := 0; i < n; i += 2 {
			m := out[2*i : 2*i+4]
			u0, v0 := fr.chroma(i)
			u1, v1 := fr.chroma(i + 1)
			m[info.y0] = fr.y[i]
			m[info.y0+2] = fr.y[i+1]
			m[info.u] = byte((int(u0) + int(u1) + 1) / 2)
			m[info.v] = byte((int(v0) + int(v1) + 1) / 2)
		}
	}
}

func (fr frame) chroma(i int) (byte, byte) {
	if fr.rgb == nil {
		return 128, 128
	}
	return rgbToUV(fr.rgb[3*i], fr.rgb[3*i+1], fr.rgb[3*i+2])
}

// luma uses the same integer weights as the scanner's reference implementation.
func luma(r, g, b byte) byte {
	return byte((77*int(r) + 150*int(g) + 29*int(b) + 128) >> 8)
}

func rgbToUV(r, g, b byte) (byte, byte) {
	ri, gi, bi := int(r), int(g), int(b)
	u := ((-11059*ri - 21709*gi + 32768*bi + 32768) >> 16) + 128
	v := ((32768*ri - 27439*gi - 5329*bi + 32768) >> 16) + 128
	return clamp(u), clamp(v)
}

func yuvToRGB(y, u, v byte) (byte, byte, byte) {
	yi, ui, vi := int(y), int(u)-128, int(v)-128
	r := yi + (91881*vi+32768)>>16
	g := yi - (22554*ui+46802*vi-32768)>>16
	b := yi + (116130*ui+32768)>>16
	return clamp(r), clamp(g), clamp(b)
}

func clamp(v int) byte {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return byte(v)
}
