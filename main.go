package main

import (
	"flag"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-dnn-pipeline/ingest"
	"github.com/nvr-ai/go-dnn-pipeline/pipeline"
	"github.com/nvr-ai/go-dnn-pipeline/preprocess"
	"github.com/nvr-ai/go-dnn-pipeline/util"
	"github.com/nvr-ai/go-dnn-pipeline/zoo"
)

func main() {
	var (
		zooPath  string
		dataRoot string
		pipeName string
		filter   string
		async    bool
		deviceID int
		imageDir string
	)
	flag.StringVar(&zooPath, "zoo", "zoo.yaml", "path to the zoo YAML file")
	flag.StringVar(&dataRoot, "dataroot", "", "root directory model/classes paths resolve against (defaults to the zoo file's directory)")
	flag.StringVar(&pipeName, "pipe", "", "name of the zoo entry to run")
	flag.StringVar(&filter, "filter", "All", "zoo entry filter: All, OpenCV, TPU, NPU, VPU")
	flag.BoolVar(&async, "async", false, "run inference asynchronously, overlapping it with capture")
	flag.IntVar(&deviceID, "device", 0, "video capture device id")
	flag.StringVar(&imageDir, "imagedir", "", "replay frame-NNN.{jpg,png,webp} files from this directory instead of opening a capture device")
	flag.Parse()

	if pipeName == "" {
		log.Fatal("main: -pipe is required")
	}

	pipe, err := pipeline.New(zooPath, dataRoot)
	if err != nil {
		log.Fatalf("main: %v", err)
	}
	pipe.SetFilter(zoo.Filter(filter))
	pipe.SetAsync(async)
	pipe.SelectPipe(pipeName)

	if imageDir != "" {
		runDirectory(pipe, imageDir)
		return
	}
	runCapture(pipe, deviceID)
}

// runDirectory replays a directory of frame-NNN.{jpg,png,webp} files through
// pipe in ascending frame order, decoding each via ingest.
func runDirectory(pipe *pipeline.Pipeline, dir string) {
	files, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		log.Fatalf("main: loading %s: %v", dir, err)
	}
	for _, f := range files {
		frame, err := ingest.Frame(f.Data, f.Format)
		if err != nil {
			log.Printf("main: decoding %s: %v", f.Path, err)
			continue
		}
		result, err := pipe.Process(frame)
		if frame.Mat.Ptr() != nil {
			frame.Mat.Close()
		}
		if err != nil {
			log.Printf("main: %v", err)
			continue
		}
		for _, line := range pipeline.Report(result) {
			log.Println(line)
		}
	}
}

// runCapture streams frames from a live video capture device through pipe
// until the process is terminated.
func runCapture(pipe *pipeline.Pipeline, deviceID int) {
	cap, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		log.Fatalf("main: opening video capture device %d: %v", deviceID, err)
	}
	defer cap.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		if ok := cap.Read(&mat); !ok || mat.Empty() {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		result, err := pipe.Process(preprocess.Frame{Mat: mat})
		if err != nil {
			log.Printf("main: %v", err)
			continue
		}
		for _, line := range pipeline.Report(result) {
			log.Println(line)
		}
	}
}
