package stats

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WriteConvergencePlot renders the best-so-far distance per generation and,
// when given, the population mean distance.
func WriteConvergencePlot(path, title string, best, mean []float64) error {
	if len(best) == 0 {
		return fmt.Errorf("best distance series is required")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Distance"

	bestLine, err := plotter.NewLine(generationXYs(best))
	if err != nil {
		return err
	}
	bestLine.Color = color.RGBA{B: 200, A: 255}
	bestLine.Width = vg.Points(2)
	p.Add(bestLine)
	p.Legend.Add("best so far", bestLine)

	if len(mean) > 0 {
		meanLine, err := plotter.NewLine(generationXYs(mean))
		if err != nil {
			return err
		}
		meanLine.Color = color.RGBA{R: 220, A: 255}
		meanLine.Width = vg.Points(1)
		p.Add(meanLine)
		p.Legend.Add("population mean", meanLine)
	}
	p.Legend.Top = true

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// WriteTourPlot draws the closed tour through cities in route order, with
// every city labelled.
func WriteTourPlot(path string, cities []Point, route []string, distance float64) error {
	if len(cities) == 0 {
		return fmt.Errorf("cities are required")
	}
	byLabel := make(map[string]Point, len(cities))
	for _, c := range cities {
		byLabel[c.Label] = c
	}

	tour := make(plotter.XYs, 0, len(route)+1)
	for _, label := range route {
		c, ok := byLabel[label]
		if !ok {
			return fmt.Errorf("route city %q has no coordinates", label)
		}
		tour = append(tour, plotter.XY{X: c.X, Y: c.Y})
	}
	if len(tour) > 0 {
		tour = append(tour, tour[0])
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Best tour (distance %.4f)", distance)
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	if len(tour) > 1 {
		line, err := plotter.NewLine(tour)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{B: 200, A: 255}
		line.Width = vg.Points(1.5)
		p.Add(line)
	}

	points := make(plotter.XYs, len(cities))
	labels := make([]string, len(cities))
	for i, c := range cities {
		points[i] = plotter.XY{X: c.X, Y: c.Y}
		labels[i] = c.Label
	}
	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return err
	}
	scatter.Color = color.RGBA{R: 220, A: 255}
	p.Add(scatter)

	names, err := plotter.NewLabels(plotter.XYLabels{XYs: points, Labels: labels})
	if err != nil {
		return err
	}
	p.Add(names)
	p.Add(plotter.NewGrid())

	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

func generationXYs(series []float64) plotter.XYs {
	pts := make(plotter.XYs, len(series))
	for i, v := range series {
		pts[i].X = float64(i + 1)
		pts[i].Y = v
	}
	return pts
}
