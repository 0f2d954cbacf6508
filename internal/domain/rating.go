package domain

// RecomputeAggregate derives a product's rating and review count from its reviews.
// An empty list yields a zero rating.
func RecomputeAggregate(reviews []Review) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	var sum int
	for _, review := range reviews {
		sum += review.Rating
	}
	return float64(sum) / float64(len(reviews)), len(reviews)
}

// ApplyReviews replaces the review list and refreshes the aggregate fields.
func (p *Product) ApplyReviews(reviews []Review) {
	p.Reviews = reviews
	p.Rating, p.NumReviews = RecomputeAggregate(reviews)
}
