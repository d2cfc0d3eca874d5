package system

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"

	halyard "github.com/armory/halyard/pkg"
	"github.com/armory/halyard/pkg/utils"
)

func checkFreeSpace(dir string, need uint64) error {
	if need == 0 {
		return nil
	}
	usage, err := disk.Usage(dir)
	if err != nil {
		return halyard.IOError("check free space", dir, err)
	}
	if usage.Free < need {
		return halyard.IOError("check free space", dir, fmt.Errorf("%s free, need at least %s",
			utils.PrettyPrintDiskSize(usage.Free), utils.PrettyPrintDiskSize(need)))
	}
	return nil
}
