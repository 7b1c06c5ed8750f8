package repositories

import "image"

func boundsFromCrop(crop *AvatarCrop) image.Rectangle {
	return image.Rect(crop.X, crop.Y, crop.X+crop.Width, crop.Y+crop.Height)
}
