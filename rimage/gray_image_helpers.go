// Package rimage holds the grayscale image primitives used to find a puzzle grid in a camera
// frame: conversion, adaptive thresholding, connected components and perspective warping.
package rimage

import (
	"image"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// InkValue marks a foreground pixel in a binary image. Background pixels are zero.
const InkValue = 255

// SameImgSize compares images to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Dx() == g2.Bounds().Dx() && g1.Bounds().Dy() == g2.Bounds().Dy()
}

// MakeGray converts any image into an image.Gray whose bounds start at the origin. Gray images
// that already start at the origin are returned as is.
func MakeGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	bounds := img.Bounds()
	result := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)
	return result
}

// CountInk returns the number of foreground pixels of bin inside rect.
func CountInk(bin *image.Gray, rect image.Rectangle) int {
	rect = rect.Intersect(bin.Bounds())
	num := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := bin.Pix[bin.PixOffset(rect.Min.X, y):bin.PixOffset(rect.Max.X, y)]
		for _, v := range row {
			if v != 0 {
				num++
			}
		}
	}
	return num
}

func checkOrigin(img *image.Gray) error {
	if img == nil {
		return errors.New("nil image")
	}
	if img.Rect.Min != (image.Point{}) {
		return errors.Errorf("image bounds must start at the origin, got %v", img.Rect)
	}
	return nil
}
